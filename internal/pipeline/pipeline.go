// Package pipeline runs the concurrent file-to-item pipeline: traversal
// feeds a bounded worker pool, each worker turns one file into items
// (decrypting when needed) and pushes them onto one shared queue.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	nserrors "github.com/dkrall/noteseek/internal/errors"
	"github.com/dkrall/noteseek/internal/extract"
	"github.com/dkrall/noteseek/internal/record"
	"github.com/dkrall/noteseek/internal/traverse"
	"github.com/dkrall/noteseek/internal/vimcrypt"
)

// DefaultWorkers is the worker pool size when the config does not set one.
const DefaultWorkers = 10

// Config is the full, explicit input of a pipeline run. Core logic never
// reads ambient environment; everything arrives here.
type Config struct {
	// Roots are the directories to index.
	Roots []string

	// TextExtensions overrides the traverser's default text extension set.
	TextExtensions []string

	// ExcludeDirs are extra directory basenames to skip during traversal.
	ExcludeDirs []string

	// Workers bounds the concurrent file tasks (default: DefaultWorkers).
	Workers int

	// Password decrypts VimCrypt files. Empty means encrypted files are
	// skipped. Read-only shared state, handed to every worker.
	Password string
}

// FileError reports one file whose task failed. The run continues; the
// caller decides how to present the failures.
type FileError struct {
	Path string
	Err  error
}

// Run is a live pipeline execution. Items carries every produced item and
// is closed once all workers finished; Failures is closed at the same time.
// Both channels must be drained concurrently or workers may stall.
type Run struct {
	// Items is the shared multi-producer queue, closed after the last task.
	Items <-chan record.Item

	// Failures carries per-file task failures, closed with Items.
	Failures <-chan FileError
}

// Coordinator dispatches traversal results across the worker pool.
type Coordinator struct {
	cfg Config
}

// New creates a Coordinator for the given config.
func New(cfg Config) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	return &Coordinator{cfg: cfg}
}

// Start launches traversal and the worker pool and returns immediately.
// Canceling ctx stops traversal and in-flight workers promptly; the
// channels still get closed.
func (c *Coordinator) Start(ctx context.Context) *Run {
	items := make(chan record.Item, 256)
	failures := make(chan FileError, 16)

	entries := traverse.Walk(ctx, traverse.Options{
		Roots:          c.cfg.Roots,
		TextExtensions: c.cfg.TextExtensions,
		ExcludeDirs:    c.cfg.ExcludeDirs,
	})

	go func() {
		defer close(items)
		defer close(failures)

		g, gctx := errgroup.WithContext(ctx)
		sem := make(chan struct{}, c.cfg.Workers)

		for entry := range entries {
			entry := entry

			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				// Drain remaining entries so the traverser can close.
				continue
			}

			g.Go(func() error {
				defer func() { <-sem }()
				c.processEntry(gctx, entry, items, failures)
				return nil
			})
		}

		// Tasks never return errors; Wait is for completion only.
		_ = g.Wait()
	}()

	return &Run{Items: items, Failures: failures}
}

// processEntry executes one file task: classify, optionally decrypt,
// extract, and push every resulting item in file order.
func (c *Coordinator) processEntry(ctx context.Context, entry traverse.Entry, items chan<- record.Item, failures chan<- FileError) {
	if entry.Kind == traverse.KindOpaque {
		sendItem(ctx, items, record.FileItem{Path: entry.Path})
		return
	}

	content, err := os.ReadFile(entry.Path)
	if err != nil {
		reportFailure(ctx, failures, entry.Path, nserrors.Wrap(nserrors.ErrCodeFileRead, err))
		return
	}

	origin := record.Plain
	if vimcrypt.IsEncrypted(content) {
		if c.cfg.Password == "" {
			slog.Warn("skipping encrypted file, no password supplied",
				slog.String("path", entry.Path))
			reportFailure(ctx, failures, entry.Path,
				nserrors.New(nserrors.ErrCodeMissingPassword, "encrypted file needs --encrypted", nil))
			return
		}
		plain, err := vimcrypt.Decrypt(content, c.cfg.Password)
		if err != nil {
			reportFailure(ctx, failures, entry.Path,
				fmt.Errorf("decrypting %s: %w", entry.Path, err))
			return
		}
		content = plain
		origin = record.EncryptedWith(c.cfg.Password)
	}

	for _, item := range extract.Lines(entry.Path, content, origin) {
		if !sendItem(ctx, items, item) {
			return
		}
	}
}

func sendItem(ctx context.Context, items chan<- record.Item, it record.Item) bool {
	select {
	case items <- it:
		return true
	case <-ctx.Done():
		return false
	}
}

func reportFailure(ctx context.Context, failures chan<- FileError, path string, err error) {
	slog.Warn("file task failed",
		slog.String("path", path),
		slog.String("error", err.Error()))
	select {
	case failures <- FileError{Path: path, Err: err}:
	case <-ctx.Done():
	}
}
