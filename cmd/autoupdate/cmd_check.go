package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushchain/autoupdate/internal/config"
	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/ui"
	"github.com/pushchain/autoupdate/internal/update"
)

type assetView struct {
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size" yaml:"size"`
	URL  string `json:"url" yaml:"url"`
}

type candidateView struct {
	Tag     string      `json:"tag" yaml:"tag"`
	Name    string      `json:"name,omitempty" yaml:"name,omitempty"`
	Version string      `json:"version" yaml:"version"`
	Assets  []assetView `json:"assets" yaml:"assets"`
}

// checkResult is the structured output of `check`.
type checkResult struct {
	Repository      string             `json:"repository" yaml:"repository"`
	Current         string             `json:"current" yaml:"current"`
	Constraint      string             `json:"constraint" yaml:"constraint"`
	UpdateAvailable bool               `json:"update_available" yaml:"update_available"`
	Candidate       *candidateView     `json:"candidate,omitempty" yaml:"candidate,omitempty"`
	Rejected        []update.Rejection `json:"rejected,omitempty" yaml:"rejected,omitempty"`
}

type checkOptions struct {
	explain  bool
	exitCode bool
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the registry for a newer release",
		Long:  "List releases once, apply the selection rules and report the candidate, if any.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(); err != nil {
				return err
			}
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, newRegistryClient(cfg), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "List rejected releases and why")
	cmd.Flags().BoolVar(&opts.exitCode, "exit-code", false, fmt.Sprintf("Exit %d when an update is available", exitcodes.UpdateAvailable))
	return cmd
}

func runCheck(ctx context.Context, cfg config.Config, client update.RegistryClient, out io.Writer, opts checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	current, constraint, err := parseTarget(cfg)
	if err != nil {
		return err
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return exitcodes.PreconditionError("owner and repo are required (use --owner/--repo or AUTOUPDATE_OWNER/AUTOUPDATE_REPO)")
	}

	if cfg.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.HTTPTimeout)
		defer cancel()
	}
	releases, err := client.ListReleases(ctx, cfg.Owner, cfg.Repo)
	if err != nil {
		return registryError(cfg, err)
	}

	sel := update.Evaluate(releases, current, constraint)
	res := checkResult{
		Repository:      cfg.Owner + "/" + cfg.Repo,
		Current:         current.String(),
		Constraint:      constraint.String(),
		UpdateAvailable: sel.Found,
	}
	if sel.Found {
		res.Candidate = viewCandidate(sel.Candidate)
	}
	if opts.explain {
		res.Rejected = sel.Rejected
	}

	p := getPrinter().WithWriter(out)
	if !p.Structure(res) {
		printCheckText(p, res, opts.explain)
	}

	if opts.exitCode && sel.Found {
		return silentErr{exitcodes.NewErrorf(exitcodes.UpdateAvailable, "update available: %s", sel.Candidate.Tag)}
	}
	return nil
}

// registryError maps a registry failure onto an exit code and prints an
// actionable message.
func registryError(cfg config.Config, err error) error {
	repo := cfg.Owner + "/" + cfg.Repo
	if errors.Is(err, update.ErrRepoNotFound) {
		if !getPrinter().Structured() {
			ui.PrintError(os.Stderr, ui.ErrorMessage{
				Problem: fmt.Sprintf("repository %s not found on %s", repo, cfg.APIURL),
				Causes:  []string{"owner or repo misspelled", "private repository without a token"},
				Actions: []string{"check --owner and --repo", "set AUTOUPDATE_TOKEN for private repositories"},
			})
			return silentErr{exitcodes.WrapError(exitcodes.ValidationError, "repository not found", err)}
		}
		return exitcodes.WrapError(exitcodes.ValidationError, "repository not found", err)
	}
	return exitcodes.WrapError(exitcodes.NetworkError, "list releases for "+repo, err)
}

func viewCandidate(c update.Candidate) *candidateView {
	v := &candidateView{Tag: c.Tag, Name: c.Name, Version: c.Version.String()}
	for _, a := range c.Assets {
		v.Assets = append(v.Assets, assetView{Name: a.Name, Size: a.Size, URL: a.BrowserDownloadURL})
	}
	return v
}

func printCheckText(p ui.Printer, res checkResult, explain bool) {
	if flagQuiet {
		if res.Candidate != nil {
			p.Textf("%s\n", res.Candidate.Tag)
		}
		return
	}

	if res.Candidate == nil {
		p.Success(fmt.Sprintf("%s is up to date (running %s, constraint %s)", res.Repository, res.Current, res.Constraint))
	} else {
		p.Info(fmt.Sprintf("Update available for %s", res.Repository))
		p.KeyValueLine("Running", res.Current, "dim")
		p.KeyValueLine("Constraint", res.Constraint, "dim")
		p.KeyValueLine("Candidate", res.Candidate.Tag, "green")
		if res.Candidate.Name != "" && res.Candidate.Name != res.Candidate.Tag {
			p.KeyValueLine("Name", res.Candidate.Name, "")
		}
		var total int64
		for _, a := range res.Candidate.Assets {
			total += a.Size
		}
		p.KeyValueLine("Assets", fmt.Sprintf("%d (%s)", len(res.Candidate.Assets), ui.FormatBytes(total)), "")
	}

	if explain {
		p.Section("Rejected releases")
		if len(res.Rejected) == 0 {
			p.Textf("  none\n")
			return
		}
		rows := make([][]string, 0, len(res.Rejected))
		for _, r := range res.Rejected {
			detail := ""
			if r.Err != nil {
				detail = r.Err.Error()
			}
			rows = append(rows, []string{r.Tag, string(r.Reason), detail})
		}
		p.Textf("%s", ui.Table(p.Colors, []string{"TAG", "REASON", "DETAIL"}, rows, nil))
	}
}
