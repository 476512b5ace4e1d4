package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// flushStdin discards any pending input from stdin to prevent
// terminal response sequences (like cursor position reports, focus events)
// from corrupting the output.
func flushStdin() {
	FlushStdinWithTimeout(30 * time.Millisecond)
}

// ProgressLine renders update progress on a single line. On a TTY the line
// is redrawn in place; otherwise one line is printed per phase change and
// per 10% step.
type ProgressLine struct {
	out        io.Writer
	isTTY      bool
	colors     *ColorConfig
	indent     string
	interval   time.Duration
	frame      int
	lastUpdate time.Time
	lastPhase  string
	lastPct    float64
	drawn      bool
}

// NewProgressLine creates a progress line writing to out (stdout when nil).
func NewProgressLine(out io.Writer) *ProgressLine {
	if out == nil {
		out = os.Stdout
	}

	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}
	if isTTY {
		// Disable focus reporting (CSI ? 1004 l)
		fmt.Fprint(out, "\033[?1004l")
		flushStdin()
	}

	return &ProgressLine{
		out:      out,
		isTTY:    isTTY,
		colors:   NewColorConfigFromGlobal(),
		indent:   "  ",
		interval: 100 * time.Millisecond,
		lastPct:  -1,
	}
}

// SetIndent sets the indentation prefix for the output.
func (p *ProgressLine) SetIndent(indent string) {
	p.indent = indent
}

// Update renders phase with pct. Phases without progress pass a negative pct.
func (p *ProgressLine) Update(phase string, pct float64) {
	if p.isTTY {
		now := time.Now()
		if phase == p.lastPhase && now.Sub(p.lastUpdate) < p.interval {
			return
		}
		p.lastUpdate = now
		p.lastPhase = phase
		p.renderTTY(phase, pct)
		return
	}

	if phase != p.lastPhase {
		p.lastPhase = phase
		p.lastPct = -1
		if pct < 0 {
			fmt.Fprintf(p.out, "%s%s\n", p.indent, phase)
			return
		}
	}
	if pct < 0 {
		return
	}
	threshold := float64(int(pct/10) * 10)
	if threshold > p.lastPct {
		p.lastPct = threshold
		fmt.Fprintf(p.out, "%s%s... %.0f%%\n", p.indent, phase, threshold)
	}
}

func (p *ProgressLine) renderTTY(phase string, pct float64) {
	p.drawn = true
	icon := p.colors.StatusIcon(phase)
	if pct < 0 {
		p.frame++
		// \033[K clears from cursor to end of line
		fmt.Fprintf(p.out, "\r%s%s %s %s\033[K", p.indent, icon, phase, p.colors.Spinner(p.frame))
		return
	}

	width := 80
	if f, ok := p.out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	barWidth := width - 30 - len(p.indent)
	if barWidth < 10 {
		barWidth = 10
	}
	if barWidth > 40 {
		barWidth = 40
	}
	fmt.Fprintf(p.out, "\r%s%s %-11s [%s] %5.1f%%\033[K",
		p.indent, icon, phase, p.colors.ProgressBar(pct, barWidth), pct)
}

// Finish moves past the progress line.
func (p *ProgressLine) Finish() {
	if p.isTTY && p.drawn {
		fmt.Fprintln(p.out)
		flushStdin()
	}
}
