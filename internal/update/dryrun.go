package update

import (
	"log"
	"sync/atomic"
	"time"
)

const (
	DefaultCheckDelay   = 2 * time.Second
	DefaultStepInterval = 100 * time.Millisecond

	// NoPause disables a dry-run pause; zero selects the default.
	NoPause time.Duration = -1
)

// DryRunOptions configures a DryRunUpdater.
type DryRunOptions struct {
	FakeUpdateAvailable bool
	CheckDelay          time.Duration // pause while "checking" (0: 2s, negative: none)
	StepInterval        time.Duration // pause before each progress step (0: 100ms, negative: none)
	Cell                *StatusCell   // shared status (default: new cell)
	Logger              *log.Logger   // default: discard
}

// DryRunUpdater simulates the update lifecycle without touching a registry,
// so hosts can exercise their status UI.
type DryRunUpdater struct {
	fakeUpdate bool
	checkDelay time.Duration
	step       time.Duration
	cell       *StatusCell
	logger     *log.Logger

	started atomic.Bool
	done    chan struct{}
}

// NewDryRun creates a simulated updater.
func NewDryRun(opts DryRunOptions) *DryRunUpdater {
	switch {
	case opts.CheckDelay == 0:
		opts.CheckDelay = DefaultCheckDelay
	case opts.CheckDelay < 0:
		opts.CheckDelay = 0
	}
	switch {
	case opts.StepInterval == 0:
		opts.StepInterval = DefaultStepInterval
	case opts.StepInterval < 0:
		opts.StepInterval = 0
	}
	if opts.Cell == nil {
		opts.Cell = NewStatusCell()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return &DryRunUpdater{
		fakeUpdate: opts.FakeUpdateAvailable,
		checkDelay: opts.CheckDelay,
		step:       opts.StepInterval,
		cell:       opts.Cell,
		logger:     opts.Logger,
		done:       make(chan struct{}),
	}
}

// Start begins the simulation once. Without a fake update the status
// becomes UpToDate before Start returns.
func (u *DryRunUpdater) Start(current Version, constraint Constraint) {
	if !u.started.CompareAndSwap(false, true) {
		return
	}
	if !u.fakeUpdate {
		u.cell.Store(UpToDate())
		close(u.done)
		return
	}
	u.logger.Printf("dry run: simulating update from %s (constraint %s)", current, constraint)
	go u.run()
}

// Status returns the current status snapshot.
func (u *DryRunUpdater) Status() Status {
	return u.cell.Load()
}

// Cell returns the shared status cell.
func (u *DryRunUpdater) Cell() *StatusCell {
	return u.cell
}

// Done is closed once the simulation has finished.
func (u *DryRunUpdater) Done() <-chan struct{} {
	return u.done
}

func (u *DryRunUpdater) run() {
	defer close(u.done)

	u.cell.Store(CheckingForUpdate())
	pause(u.checkDelay)

	for i := 0; i <= 100; i++ {
		pause(u.step)
		u.cell.Store(Downloading(float64(i)))
	}
	for i := 0; i <= 100; i++ {
		pause(u.step)
		u.cell.Store(Installing(float64(i)))
	}
	u.cell.Store(FinishedInstalling())
	u.logger.Printf("dry run: finished")
}

func pause(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}
