package monitor

import (
	"time"

	"github.com/pushchain/autoupdate/internal/update"
)

// tickMsg is sent periodically to poll the updater
type tickMsg time.Time

// toggleHelpMsg is sent when the user presses 'h'
type toggleHelpMsg struct{}

// Transition records one observed status change.
type Transition struct {
	At     time.Time
	Status update.Status
}

// Data aggregates everything the panels render.
type Data struct {
	Status     update.Status
	Current    string
	Constraint string
	Candidate  string // tag of the selected release, empty until known
	History    []Transition
	Elapsed    time.Duration
	Spinner    string // current spinner frame
	AppVersion string
}

// Options configures the monitor.
type Options struct {
	Update          *update.AutoUpdate
	RefreshInterval time.Duration   // poll cadence (default 100ms)
	Candidate       func() string   // optional: tag of the selected release
	Done            <-chan struct{} // optional: closed when the updater worker exits
	ExitOnSettled   bool            // quit once the status settles or the worker exits
	HistoryLimit    int             // transitions kept for display (default 8)
	NoEmoji         bool
	AppVersion      string
}
