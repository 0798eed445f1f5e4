// Package action executes what happens after a selection: opening the
// record in an editor, revealing it in the file manager, printing its
// file, or creating a fresh note.
package action

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	nserrors "github.com/dkrall/noteseek/internal/errors"
	"github.com/dkrall/noteseek/internal/record"
	"github.com/dkrall/noteseek/internal/vimcrypt"
)

// DefaultEditor is used when neither config nor $EDITOR names one.
const DefaultEditor = "vi"

// Runner executes post-selection actions.
type Runner struct {
	// Editor is the command invoked to edit text records.
	Editor string

	// Roots are the note directories; new notes land in the first one.
	Roots []string

	// Stdout receives Print output.
	Stdout io.Writer
}

// NewRunner creates a Runner, falling back to $EDITOR and then
// DefaultEditor when editor is empty.
func NewRunner(editor string, roots []string, stdout io.Writer) *Runner {
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		editor = DefaultEditor
	}
	return &Runner{Editor: editor, Roots: roots, Stdout: stdout}
}

// Open opens the item: text records in the editor at their line, opaque
// files with the platform opener.
func (r *Runner) Open(ctx context.Context, item record.Item) error {
	name, args := openArgs(r.Editor, item)
	return r.runInteractive(ctx, name, args)
}

// Reveal opens the directory containing the item's file.
func (r *Runner) Reveal(ctx context.Context, item record.Item) error {
	dir := filepath.Dir(record.Path(item))
	return r.runInteractive(ctx, opener(), []string{dir})
}

// Print writes the item's whole file to Stdout, decrypting it again
// with the password recorded at index time. Opaque files print their
// path only.
func (r *Runner) Print(item record.Item) error {
	li, ok := item.(record.LineItem)
	if !ok {
		_, err := fmt.Fprintln(r.Stdout, record.Path(item))
		return err
	}

	content, err := os.ReadFile(li.Path)
	if err != nil {
		return nserrors.Wrap(nserrors.ErrCodeFileRead, err)
	}
	if vimcrypt.IsEncrypted(content) {
		if !li.Origin.Encrypted {
			return nserrors.New(nserrors.ErrCodeMissingPassword,
				"file became encrypted after indexing: "+li.Path, nil)
		}
		if content, err = vimcrypt.Decrypt(content, li.Origin.Password); err != nil {
			return err
		}
	}
	_, err = r.Stdout.Write(content)
	return err
}

// CreateNew creates a timestamped note in the first root and opens it
// in the editor. Returns the new note's path.
func (r *Runner) CreateNew(ctx context.Context) (string, error) {
	if len(r.Roots) == 0 {
		return "", nserrors.New(nserrors.ErrCodeConfigInvalid,
			"no note root configured for new notes", nil)
	}
	root := r.Roots[0]
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", nserrors.Wrap(nserrors.ErrCodeFilePermission, err)
	}

	path := newNotePath(root, time.Now())
	if err := r.runInteractive(ctx, r.Editor, []string{path}); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Runner) runInteractive(ctx context.Context, name string, args []string) error {
	slog.Debug("running action command",
		slog.String("command", name),
		slog.Any("args", args))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", name, err)
	}
	return nil
}

// openArgs builds the command line for Open. Text records use the
// editor's "+N" convention to land on the selected line, one-based.
func openArgs(editor string, item record.Item) (string, []string) {
	switch v := item.(type) {
	case record.LineItem:
		return editor, []string{fmt.Sprintf("+%d", v.Line+1), v.Path}
	default:
		return opener(), []string{record.Path(item)}
	}
}

// opener names the platform's file opener.
func opener() string {
	if runtime.GOOS == "darwin" {
		return "open"
	}
	return "xdg-open"
}

// newNotePath builds the path of a fresh note in root.
func newNotePath(root string, now time.Time) string {
	return filepath.Join(root, now.Format("2006-01-02-150405")+".md")
}
