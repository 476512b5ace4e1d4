package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pushchain/autoupdate/internal/config"
	"github.com/pushchain/autoupdate/internal/exitcodes"
	"github.com/pushchain/autoupdate/internal/ui"
)

// Version information - set via -ldflags during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// silentErr carries an exit code without printing the error again; the
// command has already reported it.
type silentErr struct{ err error }

func (s silentErr) Error() string { return s.err.Error() }
func (s silentErr) Unwrap() error { return s.err }

var rootCmd = &cobra.Command{
	Use:           "autoupdate",
	Short:         "Release auto-update engine",
	Long:          "Check a release registry for newer versions and drive the download/install lifecycle.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.InitGlobal(ui.Config{
			NoColor: flagNoColor,
			NoEmoji: flagNoEmoji,
			Quiet:   flagQuiet,
			Debug:   flagDebug,
		})
		// lipgloss reads NO_COLOR directly
		if flagNoColor {
			_ = os.Setenv("NO_COLOR", "1")
		}
	},
}

var (
	flagConfig     string
	flagOutput     string
	flagQuiet      bool
	flagDebug      bool
	flagNoColor    bool
	flagNoEmoji    bool
	flagOwner      string
	flagRepo       string
	flagCurrent    string
	flagConstraint string
	flagAPIURL     string
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $HOME/.autoupdate/config.yaml)")
	pf.StringVarP(&flagOutput, "output", "o", "text", "Output format: json|yaml|text")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Quiet mode: minimal output")
	pf.BoolVarP(&flagDebug, "debug", "d", false, "Debug output: updater logs on stderr")
	pf.BoolVar(&flagNoColor, "no-color", false, "Disable ANSI colors")
	pf.BoolVar(&flagNoEmoji, "no-emoji", false, "Disable emoji output")
	pf.StringVar(&flagOwner, "owner", "", "Repository owner on the release registry")
	pf.StringVar(&flagRepo, "repo", "", "Repository name on the release registry")
	pf.StringVar(&flagCurrent, "current", "", "Running version (default 0.0.0)")
	pf.StringVar(&flagConstraint, "constraint", "", "Version constraint, e.g. ^1.2 or >=2.0, <3.0 (default *)")
	pf.StringVar(&flagAPIURL, "api-url", "", "Release registry API base URL")

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprintln(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		printRootHelp(cmd.OutOrStdout())
	})
}

func printRootHelp(w io.Writer) {
	// Help runs before PersistentPreRun, so apply the color flags by hand
	c := ui.NewColorConfig()
	c.Enabled = c.Enabled && !flagNoColor
	c.EmojiEnabled = c.EmojiEnabled && !flagNoEmoji
	const cmdWidth = 28

	line := func(name, desc string) {
		fmt.Fprintf(w, "  %s%*s%s\n", c.Apply(c.Theme.Success, name), cmdWidth-len(name), "", c.Description(desc))
	}

	fmt.Fprintln(w, c.Header(" Auto Update "))
	fmt.Fprintln(w, c.Description(rootCmd.Long))
	fmt.Fprintln(w, c.Separator(50))
	fmt.Fprintln(w)
	fmt.Fprintln(w, c.SubHeader("USAGE"))
	fmt.Fprintf(w, "  %s <command> [flags]\n\n", "autoupdate")

	fmt.Fprintln(w, c.SubHeader("Updates"))
	line("check", "Check the registry for a newer release")
	line("watch", "Run the check/download/install lifecycle")
	line("status", "Show status from a running watch")
	fmt.Fprintln(w)

	fmt.Fprintln(w, c.SubHeader("Utilities"))
	line("logs", "Print or follow the updater log")
	line("version", "Show build information")
	line("completion <shell>", "Generate shell completion")
	fmt.Fprintln(w)

	fmt.Fprintln(w, c.SubHeader("Flags"))
	fmt.Fprint(w, rootCmd.PersistentFlags().FlagUsages())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se silentErr
		if !errors.As(err, &se) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(exitcodes.CodeForError(err))
	}
}

// loadCfg resolves configuration from file, environment and the
// persistent flags.
func loadCfg() (config.Config, error) {
	overrides := map[string]any{}
	set := func(key, val string) {
		if val != "" {
			overrides[key] = val
		}
	}
	set(config.KeyOwner, flagOwner)
	set(config.KeyRepo, flagRepo)
	set(config.KeyCurrentVersion, flagCurrent)
	set(config.KeyConstraint, flagConstraint)
	set(config.KeyAPIURL, flagAPIURL)

	cfg, err := config.Load(config.WithConfigFile(flagConfig), config.WithOverrides(overrides))
	if err != nil {
		return config.Config{}, exitcodes.WrapError(exitcodes.ValidationError, "invalid configuration", err)
	}
	return cfg, nil
}

// getPrinter returns a UI printer bound to the current --output flag.
func getPrinter() ui.Printer { return ui.NewPrinterFromGlobal(flagOutput) }

func validateOutput() error {
	switch flagOutput {
	case ui.FormatText, ui.FormatJSON, ui.FormatYAML, "":
		return nil
	}
	return exitcodes.InvalidArgsErrorf("invalid --output: %s (use json|yaml|text)", flagOutput)
}
