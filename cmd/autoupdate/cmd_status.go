package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/statusserver"
	"github.com/pushchain/autoupdate/internal/ui"
)

const defaultStatusAddr = "http://127.0.0.1:9180"

type statusOptions struct {
	addr   string
	follow bool
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status from a running watch",
		Long:  "Query the status server of a `watch --metrics-addr` process, once or as a stream.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(); err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runStatus(ctx, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", defaultStatusAddr, "Status server base URL")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Stream transitions until the update settles")
	return cmd
}

func runStatus(ctx context.Context, opts statusOptions, out io.Writer) error {
	p := getPrinter().WithWriter(out)

	if !opts.follow {
		snap, err := statusserver.Fetch(ctx, opts.addr)
		if err != nil {
			return exitcodes.WrapError(exitcodes.NetworkError, "status server unreachable at "+opts.addr, err)
		}
		if !p.Structure(snap) {
			printSnapshot(p, snap)
		}
		return nil
	}

	ch, err := statusserver.Subscribe(ctx, opts.addr)
	if err != nil {
		return exitcodes.WrapError(exitcodes.NetworkError, "status stream unavailable at "+opts.addr, err)
	}
	for snap := range ch {
		if !p.Structure(snap) {
			printSnapshot(p, snap)
		}
	}
	return nil
}

func printSnapshot(p ui.Printer, s statusserver.Snapshot) {
	if flagQuiet {
		p.Textf("%s %.1f\n", s.Phase, s.Progress)
		return
	}
	icon := p.Colors.StatusIcon(s.Phase)
	switch s.Phase {
	case "downloading", "installing":
		p.Textf("%s %-11s %s %5.1f%%", icon, s.Phase, p.Colors.ProgressBar(s.Progress, 20), s.Progress)
	default:
		p.Textf("%s %s", icon, s.Phase)
	}
	if s.Candidate != "" {
		p.Textf("  %s", p.Colors.Description(s.Candidate))
	}
	p.Textf("\n")
	if s.RestartRequired {
		p.Success(fmt.Sprintf("Update %s installed; restart to apply", s.Candidate))
	}
}
