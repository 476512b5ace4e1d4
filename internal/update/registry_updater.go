package update

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// RegistryOptions configures a RegistryUpdater.
type RegistryOptions struct {
	Owner     string
	Repo      string
	Cell      *StatusCell   // shared status (default: new cell)
	Installer Installer     // optional; without it the worker stops at Downloading(0)
	Timeout   time.Duration // bound for the whole worker run (default: none beyond the client's)
	Logger    *log.Logger   // default: discard
}

// RegistryUpdater checks a release registry for a newer applicable release.
type RegistryUpdater struct {
	client    RegistryClient
	owner     string
	repo      string
	cell      *StatusCell
	installer Installer
	timeout   time.Duration
	logger    *log.Logger

	started atomic.Bool
	done    chan struct{}

	mu        sync.RWMutex
	candidate *Candidate
}

// NewRegistryUpdater creates an updater backed by client.
func NewRegistryUpdater(client RegistryClient, opts RegistryOptions) *RegistryUpdater {
	if opts.Cell == nil {
		opts.Cell = NewStatusCell()
	}
	if opts.Logger == nil {
		opts.Logger = discardLogger()
	}
	return &RegistryUpdater{
		client:    client,
		owner:     opts.Owner,
		repo:      opts.Repo,
		cell:      opts.Cell,
		installer: opts.Installer,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		done:      make(chan struct{}),
	}
}

// Start spawns the worker on the first call; later calls are no-ops.
func (u *RegistryUpdater) Start(current Version, constraint Constraint) {
	if !u.started.CompareAndSwap(false, true) {
		return
	}
	go u.run(current, constraint)
}

// Status returns the current status snapshot.
func (u *RegistryUpdater) Status() Status {
	return u.cell.Load()
}

// Cell returns the shared status cell.
func (u *RegistryUpdater) Cell() *StatusCell {
	return u.cell
}

// Done is closed once the worker has finished.
func (u *RegistryUpdater) Done() <-chan struct{} {
	return u.done
}

// Candidate returns the selected release once the worker has found one.
func (u *RegistryUpdater) Candidate() (Candidate, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.candidate == nil {
		return Candidate{}, false
	}
	return *u.candidate, true
}

func (u *RegistryUpdater) run(current Version, constraint Constraint) {
	defer close(u.done)

	ctx := context.Background()
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	releases, err := u.client.ListReleases(ctx, u.owner, u.repo)
	if err != nil {
		u.logger.Printf("release check failed for %s/%s: %v", u.owner, u.repo, err)
		u.cell.Store(UpToDate())
		return
	}

	sel := Evaluate(releases, current, constraint)
	for _, r := range sel.Rejected {
		if r.Reason == RejectInvalidTag {
			u.logger.Printf("skipping release %q: %v", r.Tag, r.Err)
		}
	}
	if !sel.Found {
		u.logger.Printf("no applicable release for %s/%s (current %s, constraint %s)",
			u.owner, u.repo, current, constraint)
		u.cell.Store(UpToDate())
		return
	}

	cand := sel.Candidate
	u.mu.Lock()
	u.candidate = &cand
	u.mu.Unlock()
	u.logger.Printf("found release %s (%s)", cand.Version, cand.Name)
	u.cell.Store(Downloading(0))

	if u.installer == nil {
		return
	}

	guard := &monotonic{cell: u.cell, last: Downloading(0), seen: true}
	if err := u.installer.Install(ctx, cand, guard.report); err != nil {
		u.logger.Printf("install of %s failed: %v", cand.Version, err)
		u.cell.Store(UpToDate())
		return
	}
	u.cell.Store(FinishedInstalling())
}
