// Package selector presents the wire-line stream to the user and reports
// which line was picked. Implementations receive the stream as an
// io.Reader and return the zero-based ordinal of the chosen line.
package selector

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/mattn/go-isatty"

	nserrors "github.com/dkrall/noteseek/internal/errors"
)

// Action keys a selector may report alongside the chosen line.
const (
	KeyCreateNew = "ctrl-e"
	KeyReveal    = "ctrl-r"
)

// Outcome is the result of one selector interaction.
type Outcome struct {
	// Index is the zero-based ordinal of the chosen wire line.
	Index int

	// Key is the action key that ended the interaction, empty for a
	// plain accept.
	Key string

	// Accepted is false when the user dismissed the selector without
	// choosing anything.
	Accepted bool
}

// Selector runs one interactive selection over the wire-line stream.
type Selector interface {
	Run(ctx context.Context, stream io.Reader) (Outcome, error)
}

// Choose resolves a selector by name. "fzf" and "tui" force one
// implementation; "" and "auto" prefer fzf when it is installed and the
// terminal can host it, falling back to the built-in picker.
func Choose(name string) (Selector, error) {
	switch name {
	case "", "auto":
		if _, err := exec.LookPath("fzf"); err == nil {
			return NewFzf(), nil
		}
		if !isatty.IsTerminal(os.Stdout.Fd()) {
			return nil, nserrors.New(nserrors.ErrCodeNoSelector,
				"no fzf on PATH and stdout is not a terminal", nil)
		}
		return NewTUI(), nil
	case "fzf":
		if _, err := exec.LookPath("fzf"); err != nil {
			return nil, nserrors.Wrap(nserrors.ErrCodeNoSelector, err)
		}
		return NewFzf(), nil
	case "tui":
		return NewTUI(), nil
	default:
		return nil, nserrors.New(nserrors.ErrCodeNoSelector,
			"unknown selector: "+name, nil)
	}
}
