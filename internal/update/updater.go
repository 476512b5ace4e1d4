package update

import (
	"context"
	"io"
	"log"
)

// Updater runs the check/download/install lifecycle in the background and
// exposes its progress as a Status.
type Updater interface {
	// Start begins the lifecycle. It returns immediately and spawns at most
	// one worker per instance no matter how often it is called. Failures
	// resolve to UpToDate.
	Start(current Version, constraint Constraint)
	// Status returns the current snapshot.
	Status() Status
}

// Installer downloads and unpacks a selected candidate. Progress is
// reported as Downloading and Installing statuses through report.
type Installer interface {
	Install(ctx context.Context, c Candidate, report func(Status)) error
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// monotonic forwards progress statuses, dropping any value that would move
// progress backwards within the same phase.
type monotonic struct {
	cell *StatusCell
	last Status
	seen bool
}

func (m *monotonic) report(s Status) {
	if s.IsSettled() || s.Phase == PhaseCheckingForUpdate {
		return
	}
	if m.seen && s.Phase == m.last.Phase && s.Progress <= m.last.Progress {
		return
	}
	if m.seen && s.Phase < m.last.Phase {
		return
	}
	m.last, m.seen = s, true
	m.cell.Store(s)
}
