package selector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	nserrors "github.com/dkrall/noteseek/internal/errors"
)

// maxLineBytes bounds a single wire line fed to fzf.
const maxLineBytes = 1 << 20

// Fzf drives an external fzf process. Each wire line is fed as
// "<ordinal>\t<line>" with the ordinal column hidden from display, so
// the selection maps back to a mirror index regardless of how fzf
// sorts or filters.
type Fzf struct {
	// Binary is the executable to run, "fzf" by default.
	Binary string

	// ExpectKeys are extra keys that accept the current line and are
	// reported in Outcome.Key.
	ExpectKeys []string

	// Prompt overrides fzf's default prompt when non-empty.
	Prompt string
}

// NewFzf creates an Fzf selector with the standard action keys bound.
func NewFzf() *Fzf {
	return &Fzf{
		Binary:     "fzf",
		ExpectKeys: []string{KeyCreateNew, KeyReveal},
	}
}

// Run implements Selector. It streams lines into fzf's stdin while the
// user types, so selection can start before indexing finishes.
func (f *Fzf) Run(ctx context.Context, stream io.Reader) (Outcome, error) {
	args := []string{
		"--delimiter=\t",
		"--with-nth=2..",
		"--no-multi",
	}
	if len(f.ExpectKeys) > 0 {
		args = append(args, "--expect="+strings.Join(f.ExpectKeys, ","))
	}
	if f.Prompt != "" {
		args = append(args, "--prompt="+f.Prompt)
	}

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}

	go func() {
		defer stdin.Close()
		if err := feedOrdinals(stdin, stream); err != nil {
			// fzf closes its stdin once the user accepts; a broken
			// pipe here is the normal end of the interaction.
			slog.Debug("stopped feeding selector", slog.String("error", err.Error()))
		}
	}()

	err = cmd.Wait()
	if exitErr, ok := err.(*exec.ExitError); ok {
		switch exitErr.ExitCode() {
		case 1, 130:
			// No match or user abort.
			return Outcome{}, nil
		}
	}
	if err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}

	return parseFzfOutput(stdout.String(), len(f.ExpectKeys) > 0)
}

// feedOrdinals copies stream to w line by line, prefixing the n-th line
// with "n\t".
func feedOrdinals(w io.Writer, stream io.Reader) error {
	sc := bufio.NewScanner(stream)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	bw := bufio.NewWriter(w)
	for n := 0; sc.Scan(); n++ {
		if _, err := fmt.Fprintf(bw, "%d\t%s\n", n, sc.Bytes()); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	return sc.Err()
}

// parseFzfOutput recovers the Outcome from fzf's stdout. With --expect
// the first line names the key pressed (empty for enter) and the second
// carries the selection.
func parseFzfOutput(out string, expect bool) (Outcome, error) {
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	var key, selection string
	if expect {
		if len(lines) < 2 {
			return Outcome{}, nil
		}
		key, selection = lines[0], lines[1]
	} else {
		selection = lines[0]
	}
	if selection == "" {
		return Outcome{}, nil
	}

	ordinal, _, found := strings.Cut(selection, "\t")
	if !found {
		return Outcome{}, nserrors.New(nserrors.ErrCodeSelectorFailed,
			"selection missing ordinal column", nil)
	}
	index, err := strconv.Atoi(ordinal)
	if err != nil {
		return Outcome{}, nserrors.Wrap(nserrors.ErrCodeSelectorFailed, err)
	}

	return Outcome{Index: index, Key: key, Accepted: true}, nil
}

var _ Selector = (*Fzf)(nil)
