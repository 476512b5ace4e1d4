package update

import "sync"

// StatusPoller copies an updater's status into the host's slot once per
// host tick.
type StatusPoller struct {
	updater Updater

	mu      sync.RWMutex
	last    Status
	changed bool
}

// NewStatusPoller creates a poller whose slot starts at CheckingForUpdate.
func NewStatusPoller(u Updater) *StatusPoller {
	return &StatusPoller{updater: u, last: CheckingForUpdate()}
}

// Tick copies the current status into the slot and returns it.
func (p *StatusPoller) Tick() Status {
	s := p.updater.Status()
	p.mu.Lock()
	p.changed = s != p.last
	p.last = s
	p.mu.Unlock()
	return s
}

// Last returns the value copied by the most recent Tick.
func (p *StatusPoller) Last() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Changed reports whether the most recent Tick saw a different value than
// the one before it.
func (p *StatusPoller) Changed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.changed
}
