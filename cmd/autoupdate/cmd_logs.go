package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/logs"
	"github.com/pushchain/autoupdate/internal/ui"
)

type logsOptions struct {
	follow bool
	lines  int
	poll   bool
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow the updater log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runLogs(ctx, cfg.LogFile, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Start with the last N lines (0 for all)")
	cmd.Flags().BoolVar(&opts.poll, "poll", false, "Poll for changes instead of using file notifications")
	return cmd
}

func runLogs(ctx context.Context, path string, opts logsOptions, out io.Writer) error {
	if path == "" {
		return exitcodes.PreconditionError("no log file configured (set log_file)")
	}
	if opts.lines < 0 {
		return exitcodes.InvalidArgsError("--lines must be >= 0")
	}
	err := logs.Follow(ctx, path, out, logs.Options{Lines: opts.lines, Follow: opts.follow, Poll: opts.poll})
	if errors.Is(err, logs.ErrNoLogFile) {
		if flagOutput == ui.FormatJSON {
			getPrinter().WithWriter(out).JSON(map[string]any{"ok": false, "error": "log file not found", "path": path})
		} else {
			getPrinter().WithWriter(os.Stderr).Error("log file not found: " + path)
		}
		return silentErr{exitcodes.WrapError(exitcodes.PreconditionFailed, "log file not found", err)}
	}
	return err
}
