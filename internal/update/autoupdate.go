package update

// Defaults used when the host does not configure the running version or
// constraint: version 0.0.0 and any release.
var Defaults = struct {
	Version    Version
	Constraint Constraint
}{
	Version:    NewVersion(0, 0, 0),
	Constraint: AnyVersion(),
}

// AutoUpdate bundles what a host needs: the running version, the
// constraint, the updater and the per-tick poller.
type AutoUpdate struct {
	Current    Version
	Constraint Constraint

	updater Updater
	poller  *StatusPoller
}

// New creates the host bundle. Nothing runs until Start.
func New(current Version, constraint Constraint, u Updater) *AutoUpdate {
	return &AutoUpdate{
		Current:    current,
		Constraint: constraint,
		updater:    u,
		poller:     NewStatusPoller(u),
	}
}

// NewDefault creates a bundle with Defaults for version and constraint.
func NewDefault(u Updater) *AutoUpdate {
	return New(Defaults.Version, Defaults.Constraint, u)
}

// Start begins the update lifecycle. Safe to call repeatedly.
func (a *AutoUpdate) Start() {
	a.updater.Start(a.Current, a.Constraint)
}

// Poll runs one host tick and returns the observed status.
func (a *AutoUpdate) Poll() Status {
	return a.poller.Tick()
}

// Status returns the value observed on the last Poll.
func (a *AutoUpdate) Status() Status {
	return a.poller.Last()
}

// Changed reports whether the last Poll observed a new status.
func (a *AutoUpdate) Changed() bool {
	return a.poller.Changed()
}

// Updater returns the wrapped updater.
func (a *AutoUpdate) Updater() Updater {
	return a.updater
}
