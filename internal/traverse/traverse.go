// Package traverse discovers files under the configured note roots and
// classifies them for the indexing pipeline.
package traverse

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
)

// Kind classifies a discovered file.
type Kind int

const (
	// KindText is a line-indexable text file (by extension).
	KindText Kind = iota
	// KindOpaque is any other file; it is indexed by path only.
	KindOpaque
)

// Entry is one discovered file.
type Entry struct {
	// Path is the absolute path of the file.
	Path string
	// Kind is the classification by extension.
	Kind Kind
}

// DefaultTextExtensions are the extensions routed through line extraction
// when the config does not override them.
var DefaultTextExtensions = []string{".md", ".txt", ".markdown"}

// defaultExcludeDirs are never descended into.
var defaultExcludeDirs = []string{".git", "node_modules", ".cache"}

// Options configures a traversal.
type Options struct {
	// Roots are the directories to walk. Relative roots are made absolute.
	Roots []string

	// TextExtensions overrides DefaultTextExtensions when non-empty.
	TextExtensions []string

	// ExcludeDirs are directory basenames to skip, in addition to the
	// built-in set.
	ExcludeDirs []string
}

func (o *Options) textExtensions() map[string]bool {
	exts := o.TextExtensions
	if len(exts) == 0 {
		exts = DefaultTextExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.ToLower(e)] = true
	}
	return set
}

func (o *Options) excludedDirs() map[string]bool {
	set := make(map[string]bool, len(defaultExcludeDirs)+len(o.ExcludeDirs))
	for _, d := range defaultExcludeDirs {
		set[d] = true
	}
	for _, d := range o.ExcludeDirs {
		set[d] = true
	}
	return set
}

// Walk enumerates every file reachable from the roots and streams entries
// as they are discovered. Entries that error during enumeration are skipped,
// not fatal. The channel is closed when all roots are done.
func Walk(ctx context.Context, opts Options) <-chan Entry {
	exts := opts.textExtensions()
	skip := opts.excludedDirs()
	out := make(chan Entry, 64)

	go func() {
		defer close(out)
		for _, root := range opts.Roots {
			absRoot, err := filepath.Abs(root)
			if err != nil {
				slog.Warn("skipping root", slog.String("root", root), slog.String("error", err.Error()))
				continue
			}
			walkRoot(ctx, absRoot, exts, skip, out)
		}
	}()

	return out
}

func walkRoot(ctx context.Context, absRoot string, exts, skip map[string]bool, out chan<- Entry) {
	err := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Permission problems, dangling links and the like: skip, keep going.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != absRoot && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		entry := Entry{Path: path, Kind: classify(path, exts)}
		select {
		case out <- entry:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	})

	if err != nil && err != context.Canceled {
		slog.Warn("traversal ended early",
			slog.String("root", absRoot),
			slog.String("error", err.Error()))
	}
}

func classify(path string, exts map[string]bool) Kind {
	if exts[strings.ToLower(filepath.Ext(path))] {
		return KindText
	}
	return KindOpaque
}
