package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pushchain/autoupdate/internal/update"
)

var (
	borderColor = lipgloss.Color("63")
	dimColor    = lipgloss.Color("241")
	accentColor = lipgloss.Color("39")
	warnColor   = lipgloss.Color("226")
	okColor     = lipgloss.Color("10")
)

// FormatTitle renders a bold, centered, upper-case panel title.
func FormatTitle(title string, width int) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Width(width).
		Align(lipgloss.Center).
		Render(strings.ToUpper(title))
}

// box wraps content in the shared rounded border, sized to w columns.
func box(content string, w int) string {
	contentWidth := w - 2 // left + right border
	if contentWidth < 0 {
		contentWidth = 0
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth).
		Render(content)
}

func innerWidth(w int) int {
	// border (2) + padding (2)
	if w < 4 {
		return 0
	}
	return w - 4
}

// phaseLabel returns a human label for a phase.
func phaseLabel(p update.Phase) string {
	switch p {
	case update.PhaseCheckingForUpdate:
		return "Checking for update"
	case update.PhaseUpToDate:
		return "Up to date"
	case update.PhaseDownloading:
		return "Downloading"
	case update.PhaseInstalling:
		return "Installing"
	case update.PhaseFinishedInstalling:
		return "Update installed"
	}
	return p.String()
}

func phaseIcon(p update.Phase, noEmoji bool) string {
	if noEmoji {
		switch p {
		case update.PhaseUpToDate:
			return "[OK]"
		case update.PhaseFinishedInstalling:
			return "[RESTART]"
		case update.PhaseDownloading, update.PhaseInstalling:
			return "[..]"
		}
		return "[ ]"
	}
	switch p {
	case update.PhaseUpToDate:
		return "✓"
	case update.PhaseFinishedInstalling:
		return "↻"
	case update.PhaseDownloading:
		return "↓"
	case update.PhaseInstalling:
		return "⚙"
	}
	return "○"
}

// header shows the title and a restart badge once an update is installed.
type header struct {
	BaseComponent
	data Data
}

func newHeader() *header {
	return &header{BaseComponent: BaseComponent{id: "header"}}
}

func (c *header) Update(_ tea.Msg, data Data) (Component, tea.Cmd) {
	c.data = data
	return c, nil
}

func (c *header) View(w int) string {
	if w <= 0 {
		return ""
	}
	key := fmt.Sprintf("%s|%v", c.data.AppVersion, c.data.Status.RestartRequired())
	return c.render(key, w, func() string {
		inner := innerWidth(w)
		title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("AUTO UPDATE")
		if c.data.AppVersion != "" {
			title += " " + lipgloss.NewStyle().Foreground(dimColor).Render("v"+strings.TrimPrefix(c.data.AppVersion, "v"))
		}
		line := title
		if c.data.Status.RestartRequired() {
			badge := lipgloss.NewStyle().Foreground(warnColor).Bold(true).Render("Restart to apply update")
			spacing := inner - lipgloss.Width(title) - lipgloss.Width(badge)
			if spacing < 2 {
				spacing = 2
			}
			line = title + strings.Repeat(" ", spacing) + badge
		}
		return box(line, w)
	})
}

// statusPanel shows the current phase with a spinner or progress bar.
type statusPanel struct {
	BaseComponent
	noEmoji bool
	bar     progress.Model
	data    Data
}

func newStatusPanel(noEmoji bool) *statusPanel {
	return &statusPanel{
		BaseComponent: BaseComponent{id: "status"},
		noEmoji:       noEmoji,
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithoutPercentage(),
		),
	}
}

func (c *statusPanel) Update(_ tea.Msg, data Data) (Component, tea.Cmd) {
	c.data = data
	return c, nil
}

func (c *statusPanel) View(w int) string {
	if w <= 0 {
		return ""
	}
	st := c.data.Status
	spin := ""
	if !st.IsSettled() && !st.HasProgress() {
		spin = c.data.Spinner
	}
	key := fmt.Sprintf("%s|%s|%d", st, spin, c.data.Elapsed/time.Second)
	return c.render(key, w, func() string {
		inner := innerWidth(w)
		var lines []string
		lines = append(lines, FormatTitle("Status", inner))

		label := phaseIcon(st.Phase, c.noEmoji) + " " + phaseLabel(st.Phase)
		if spin != "" {
			label += " " + spin
		}
		lines = append(lines, label)

		if st.HasProgress() {
			barWidth := inner - 8
			if barWidth < 10 {
				barWidth = 10
			}
			c.bar.Width = barWidth
			lines = append(lines, fmt.Sprintf("%s %5.1f%%", c.bar.ViewAs(st.Progress/100), st.Progress))
		} else if st.IsTerminal() {
			lines = append(lines, lipgloss.NewStyle().Foreground(okColor).Render("Restart the application to run the new version."))
		}

		lines = append(lines, lipgloss.NewStyle().Foreground(dimColor).Render("Elapsed "+formatElapsed(c.data.Elapsed)))
		return box(strings.Join(lines, "\n"), w)
	})
}

// releasePanel shows the running version, constraint and candidate.
type releasePanel struct {
	BaseComponent
	data Data
}

func newReleasePanel() *releasePanel {
	return &releasePanel{BaseComponent: BaseComponent{id: "release"}}
}

func (c *releasePanel) Update(_ tea.Msg, data Data) (Component, tea.Cmd) {
	c.data = data
	return c, nil
}

func (c *releasePanel) View(w int) string {
	if w <= 0 {
		return ""
	}
	candidate := c.data.Candidate
	if candidate == "" {
		switch {
		case c.data.Status.Phase == update.PhaseCheckingForUpdate:
			candidate = "…"
		default:
			candidate = "none"
		}
	}
	key := c.data.Current + "|" + c.data.Constraint + "|" + candidate
	return c.render(key, w, func() string {
		inner := innerWidth(w)
		label := lipgloss.NewStyle().Bold(true)
		rows := []string{
			FormatTitle("Release", inner),
			label.Render("Running:    ") + c.data.Current,
			label.Render("Constraint: ") + c.data.Constraint,
			label.Render("Candidate:  ") + candidate,
		}
		return box(strings.Join(rows, "\n"), w)
	})
}

// historyPanel lists recent transitions, newest last.
type historyPanel struct {
	BaseComponent
	data Data
}

func newHistoryPanel() *historyPanel {
	return &historyPanel{BaseComponent: BaseComponent{id: "history"}}
}

func (c *historyPanel) Update(_ tea.Msg, data Data) (Component, tea.Cmd) {
	c.data = data
	return c, nil
}

func (c *historyPanel) View(w int) string {
	if w <= 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range c.data.History {
		fmt.Fprintf(&b, "%s  %s\n", t.At.Format("15:04:05.000"), t.Status)
	}
	content := strings.TrimSuffix(b.String(), "\n")
	return c.render(content, w, func() string {
		inner := innerWidth(w)
		body := content
		if body == "" {
			body = lipgloss.NewStyle().Foreground(dimColor).Render("no transitions yet")
		}
		return box(FormatTitle("History", inner)+"\n"+body, w)
	})
}

func formatElapsed(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
