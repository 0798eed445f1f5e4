// Package cmd provides the CLI commands for noteseek.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkrall/noteseek/internal/action"
	"github.com/dkrall/noteseek/internal/config"
	"github.com/dkrall/noteseek/internal/logging"
	"github.com/dkrall/noteseek/internal/pipeline"
	"github.com/dkrall/noteseek/internal/record"
	"github.com/dkrall/noteseek/internal/selector"
	"github.com/dkrall/noteseek/internal/stream"
	"github.com/dkrall/noteseek/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// seekFlags carries the root command's flag overrides on top of the
// loaded configuration.
type seekFlags struct {
	roots        []string
	workers      int
	selectorName string
	editor       string
	encrypted    bool
	open         bool
	reveal       bool
}

// NewRootCmd creates the root command for the noteseek CLI.
func NewRootCmd() *cobra.Command {
	var flags seekFlags

	cmd := &cobra.Command{
		Use:   "noteseek",
		Short: "Fuzzy-search your notes, encrypted ones included",
		Long: `noteseek indexes every line of your note directories, streams them
into a fuzzy selector, and opens whatever you pick at the exact line.

Vim-encrypted notes (zip method) are decrypted on the fly with --encrypted.`,
		Version: version.Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return cmd.Help()
			}
			return runSeek(cmd.Context(), flags)
		},
	}

	cmd.SetVersionTemplate("noteseek version {{.Version}}\n")

	cmd.Flags().StringArrayVar(&flags.roots, "root", nil, "Note directory to index (repeatable, overrides config)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Concurrent file tasks (overrides config)")
	cmd.Flags().StringVar(&flags.selectorName, "selector", "", "Selection frontend: auto, fzf or tui")
	cmd.Flags().StringVar(&flags.editor, "editor", "", "Editor for opening records")
	cmd.Flags().BoolVarP(&flags.encrypted, "encrypted", "e", false, "Prompt for a password and index encrypted notes too")
	cmd.Flags().BoolVarP(&flags.open, "open", "o", false, "Open the selection in the editor instead of printing it")
	cmd.Flags().BoolVar(&flags.reveal, "reveal", false, "Reveal the selection's directory in the file manager")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.noteseek/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging routes slog to the log file so the terminal stays free
// for the selector.
func startLogging(_ *cobra.Command, _ []string) error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	}

	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)

	if debugMode {
		slog.Info("Debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()))
	}
	return nil
}

// applyLogLevel re-creates the logger at the configured level. Logging
// starts before the config file is read, so a non-default level takes
// effect here. --debug always wins.
func applyLogLevel(level string) {
	if debugMode || level == "" || level == "info" {
		return
	}
	cfg := logging.DefaultConfig()
	cfg.Level = level
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		slog.Warn("keeping default log level", slog.String("error", err.Error()))
		return
	}
	if loggingCleanup != nil {
		loggingCleanup()
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// runSeek is the main flow: index, select, resolve, act.
func runSeek(ctx context.Context, flags seekFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cfg, flags)
	applyLogLevel(cfg.LogLevel)

	password := ""
	if flags.encrypted {
		if password, err = promptPassword(); err != nil {
			return err
		}
	}

	sel, err := selector.Choose(cfg.Selector)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := pipeline.New(cfg.Pipeline(password)).Start(ctx)

	failed := 0
	failuresDone := make(chan struct{})
	go func() {
		defer close(failuresDone)
		for f := range run.Failures {
			failed++
			slog.Warn("skipped file", slog.String("path", f.Path),
				slog.String("error", f.Err.Error()))
		}
	}()

	adaptor := stream.NewAdaptor(run.Items)
	outcome, err := sel.Run(ctx, adaptor)

	// The selector is done; stop indexing whatever is left.
	cancel()
	<-failuresDone

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "noteseek: skipped %d file(s), see %s\n",
			failed, logging.DefaultLogPath())
	}
	if err != nil {
		return err
	}

	return dispatch(context.Background(), cfg, flags, adaptor, outcome)
}

// dispatch turns the selector's outcome into an action.
func dispatch(ctx context.Context, cfg *config.Config, flags seekFlags, adaptor *stream.Adaptor, outcome selector.Outcome) error {
	runner := action.NewRunner(cfg.Editor, cfg.Roots, os.Stdout)

	if outcome.Accepted && outcome.Key == selector.KeyCreateNew {
		path, err := runner.CreateNew(ctx)
		if err != nil {
			return err
		}
		slog.Info("created note", slog.String("path", path))
		return nil
	}
	if !outcome.Accepted {
		return nil
	}

	item, err := adaptor.Resolve(outcome.Index)
	if err != nil {
		return err
	}
	slog.Debug("selection resolved",
		slog.Int("index", outcome.Index),
		slog.String("path", record.Path(item)))

	switch {
	case outcome.Key == selector.KeyReveal || flags.reveal:
		return runner.Reveal(ctx, item)
	case flags.open:
		return runner.Open(ctx, item)
	default:
		return runner.Print(item)
	}
}

// applyFlags overlays command-line flags, the highest precedence.
func applyFlags(cfg *config.Config, flags seekFlags) {
	if len(flags.roots) > 0 {
		cfg.Roots = flags.roots
	}
	if flags.workers > 0 {
		cfg.Workers = flags.workers
	}
	if flags.selectorName != "" {
		cfg.Selector = flags.selectorName
	}
	if flags.editor != "" {
		cfg.Editor = flags.editor
	}
}

// promptPassword reads the decryption password without echo.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal, cannot prompt for password")
	}
	fmt.Fprint(os.Stderr, "password: ")
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}
