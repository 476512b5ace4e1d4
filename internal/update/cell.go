package update

import "sync"

// Observer is called for every status write, after the cell lock is released.
type Observer func(prev, next Status)

// StatusCell holds the shared update status. The background worker is the
// only writer; any number of readers may Load concurrently and always see a
// complete value.
type StatusCell struct {
	mu        sync.RWMutex
	status    Status
	observers []Observer

	// serializes observer delivery so callbacks run in write order
	notifyMu sync.Mutex
}

// NewStatusCell returns a cell initialised to CheckingForUpdate.
func NewStatusCell() *StatusCell {
	return &StatusCell{status: CheckingForUpdate()}
}

// Load returns the current status snapshot.
func (c *StatusCell) Load() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Store replaces the status and notifies observers.
func (c *StatusCell) Store(s Status) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	prev := c.status
	c.status = s
	observers := c.observers
	c.mu.Unlock()

	for _, fn := range observers {
		fn(prev, s)
	}
}

// Observe registers fn for subsequent writes.
func (c *StatusCell) Observe(fn Observer) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers[:len(c.observers):len(c.observers)], fn)
	c.mu.Unlock()
}
