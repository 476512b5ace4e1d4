package update

import (
	"fmt"
	"math"
)

// Phase is the stage of the update lifecycle.
type Phase int

const (
	PhaseCheckingForUpdate Phase = iota
	PhaseUpToDate
	PhaseDownloading
	PhaseInstalling
	PhaseFinishedInstalling
)

// Phases lists every phase in lifecycle order.
var Phases = []Phase{
	PhaseCheckingForUpdate,
	PhaseUpToDate,
	PhaseDownloading,
	PhaseInstalling,
	PhaseFinishedInstalling,
}

func (p Phase) String() string {
	switch p {
	case PhaseCheckingForUpdate:
		return "checking"
	case PhaseUpToDate:
		return "up_to_date"
	case PhaseDownloading:
		return "downloading"
	case PhaseInstalling:
		return "installing"
	case PhaseFinishedInstalling:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Status is a snapshot of the update lifecycle. Progress is only
// meaningful for the Downloading and Installing phases and is always
// within 0..100.
type Status struct {
	Phase    Phase   `json:"phase"`
	Progress float64 `json:"progress"`
}

func CheckingForUpdate() Status { return Status{Phase: PhaseCheckingForUpdate} }
func UpToDate() Status          { return Status{Phase: PhaseUpToDate} }
func FinishedInstalling() Status {
	return Status{Phase: PhaseFinishedInstalling}
}

// Downloading returns a download status with progress clamped to 0..100.
func Downloading(progress float64) Status {
	return Status{Phase: PhaseDownloading, Progress: clampProgress(progress)}
}

// Installing returns an install status with progress clamped to 0..100.
func Installing(progress float64) Status {
	return Status{Phase: PhaseInstalling, Progress: clampProgress(progress)}
}

// HasProgress reports whether the phase carries a progress value.
func (s Status) HasProgress() bool {
	return s.Phase == PhaseDownloading || s.Phase == PhaseInstalling
}

// IsTerminal reports whether no further transition can follow.
func (s Status) IsTerminal() bool {
	return s.Phase == PhaseFinishedInstalling
}

// IsSettled reports whether the worker is done with this status: either
// nothing was applicable or the install completed.
func (s Status) IsSettled() bool {
	return s.Phase == PhaseUpToDate || s.Phase == PhaseFinishedInstalling
}

// RestartRequired reports whether the host must stop running logic
// against its loaded assets and restart into the new release.
func (s Status) RestartRequired() bool {
	return s.IsTerminal()
}

func (s Status) String() string {
	if s.HasProgress() {
		return fmt.Sprintf("%s(%.1f%%)", s.Phase, s.Progress)
	}
	return s.Phase.String()
}

func clampProgress(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
