package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pushchain/autoupdate/internal/config"
	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/monitor"
	"github.com/pushchain/autoupdate/internal/statusserver"
	"github.com/pushchain/autoupdate/internal/ui"
	"github.com/pushchain/autoupdate/internal/update"
)

type watchOptions struct {
	dryRun      bool
	fakeUpdate  bool
	install     bool
	plain       bool
	keepOpen    bool
	metricsAddr string

	// test seams
	registry    update.RegistryClient
	isTerminal  func(w io.Writer) bool
	serverReady func(addr string)
}

// watchResult is the structured output of `watch`.
type watchResult struct {
	Phase           string  `json:"phase" yaml:"phase"`
	Progress        float64 `json:"progress" yaml:"progress"`
	RestartRequired bool    `json:"restart_required" yaml:"restart_required"`
	Candidate       string  `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Error           string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the check/download/install lifecycle",
		Long: "Start the updater and poll its status every host tick until it settles. " +
			"On a terminal a live monitor is shown; otherwise transitions are printed line by line.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(); err != nil {
				return err
			}
			cfg, err := loadCfg()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runWatch(ctx, cfg, opts, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "Simulate the lifecycle without contacting the registry")
	f.BoolVar(&opts.fakeUpdate, "fake-update", false, "With --dry-run, simulate an available update")
	f.BoolVar(&opts.install, "install", false, "Download and install the selected release into install_dir")
	f.BoolVar(&opts.plain, "plain", false, "Print transitions line by line even on a terminal")
	f.BoolVar(&opts.keepOpen, "keep-open", false, "Keep the monitor open after the status settles")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics, /status and /status/stream on this address")
	return cmd
}

func runWatch(ctx context.Context, cfg config.Config, opts watchOptions, out io.Writer) error {
	if opts.dryRun || opts.fakeUpdate {
		cfg.DryRun.Enabled = true
	}
	if opts.fakeUpdate {
		cfg.DryRun.FakeUpdate = true
	}
	if opts.metricsAddr != "" {
		cfg.MetricsAddr = opts.metricsAddr
	}
	if opts.isTerminal == nil {
		opts.isTerminal = isTerminal
	}

	e, err := newEngine(cfg, engineOptions{install: opts.install, registry: opts.registry})
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	au := update.New(e.current, e.constraint, e.updater)

	reg := prometheus.NewRegistry()
	update.NewMetrics(reg).Attach(e.cell)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.MetricsAddr != "" {
		ln, err := net.Listen("tcp", cfg.MetricsAddr)
		if err != nil {
			return fmt.Errorf("status server: %w", err)
		}
		srv := statusserver.New(statusserver.Options{
			Cell:      e.cell,
			Gatherer:  reg,
			Candidate: e.candidate,
			Logger:    e.logger,
		})
		go func() {
			if err := srv.Serve(ctx, ln); err != nil {
				e.logger.Printf("status server stopped: %v", err)
			}
		}()
		if opts.serverReady != nil {
			opts.serverReady(ln.Addr().String())
		}
	}

	p := getPrinter().WithWriter(out)
	var final update.Status
	if !opts.plain && !p.Structured() && opts.isTerminal(out) {
		final, err = monitor.Run(ctx, monitor.Options{
			Update:          au,
			RefreshInterval: cfg.RefreshInterval,
			Candidate:       e.candidate,
			Done:            e.done,
			ExitOnSettled:   !opts.keepOpen,
			NoEmoji:         flagNoEmoji,
			AppVersion:      Version,
		})
		ui.ResetTerminalAfterTUI()
		if err != nil {
			return err
		}
	} else {
		var line *ui.ProgressLine
		if !p.Structured() && !flagQuiet {
			line = ui.NewProgressLine(out)
		}
		final = watchPlain(ctx, au, e.done, cfg.RefreshInterval, line)
	}

	res := watchResult{
		Phase:           final.Phase.String(),
		Progress:        final.Progress,
		RestartRequired: final.RestartRequired(),
		Candidate:       e.candidate(),
	}
	// the core reports a failed install as UpToDate; the selected
	// candidate tells the two apart
	installFailed := opts.install && !cfg.DryRun.Enabled && final.Phase == update.PhaseUpToDate && res.Candidate != ""
	if installFailed {
		res.Error = "install failed"
	}
	if p.Structure(res) {
		if installFailed {
			return silentErr{exitcodes.InstallErrf("install of %s failed", res.Candidate)}
		}
		return nil
	}
	switch {
	case installFailed:
		p.Error(fmt.Sprintf("Install of %s failed; run `autoupdate logs` for details", res.Candidate))
		return silentErr{exitcodes.InstallErrf("install of %s failed", res.Candidate)}
	case final.RestartRequired():
		p.Success(fmt.Sprintf("Installed %s into %s; restart to apply", res.Candidate, cfg.InstallDir))
	case final.Phase == update.PhaseUpToDate:
		p.Success(fmt.Sprintf("Up to date (running %s)", e.current))
	case final.Phase == update.PhaseDownloading && !opts.install && !cfg.DryRun.Enabled:
		p.Info(fmt.Sprintf("Update %s available; rerun with --install to apply it", res.Candidate))
	default:
		p.Warn(fmt.Sprintf("Stopped while %s", final))
	}
	return nil
}

// watchPlain is the non-interactive host loop: poll once per tick, render
// transitions, stop when the worker has finished or ctx ends.
func watchPlain(ctx context.Context, au *update.AutoUpdate, done <-chan struct{}, interval time.Duration, line *ui.ProgressLine) update.Status {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	au.Start()
	t := time.NewTicker(interval)
	defer t.Stop()

	render := func(st update.Status) {
		if line == nil {
			return
		}
		pct := -1.0
		if st.HasProgress() {
			pct = st.Progress
		}
		line.Update(st.Phase.String(), pct)
	}
	finish := func() {
		if line != nil {
			line.Finish()
		}
	}

	first := true
	for {
		// checked before polling so the final status is observed
		finished := isClosed(done)
		st := au.Poll()
		if first || au.Changed() {
			render(st)
			first = false
		}
		if finished || st.IsTerminal() {
			finish()
			return st
		}
		select {
		case <-ctx.Done():
			finish()
			return st
		case <-t.C:
		}
	}
}

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) && term.IsTerminal(int(os.Stdin.Fd()))
}
