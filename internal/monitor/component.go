package monitor

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	tea "github.com/charmbracelet/bubbletea"
)

// Component is one monitor panel.
type Component interface {
	Update(msg tea.Msg, data Data) (Component, tea.Cmd)
	View(width int) string
	ID() string
}

// BaseComponent caches rendered output keyed by content and width.
type BaseComponent struct {
	id       string
	lastHash uint64
	cached   string
}

// ID returns component identifier
func (c *BaseComponent) ID() string {
	return c.id
}

func (c *BaseComponent) cacheKey(content string, w int) uint64 {
	// width is part of the key so a resize invalidates the cache
	return xxhash.Sum64String(fmt.Sprintf("%d|%s", w, content))
}

// CheckCache reports a cache hit when content and width are unchanged.
func (c *BaseComponent) CheckCache(content string, w int) bool {
	h64 := c.cacheKey(content, w)
	if h64 == c.lastHash && c.cached != "" {
		return true
	}
	c.lastHash = h64
	return false
}

// UpdateCache stores rendered output in cache
func (c *BaseComponent) UpdateCache(rendered string) {
	c.cached = rendered
}

// GetCached returns cached output
func (c *BaseComponent) GetCached() string {
	return c.cached
}

// render returns the cached view for content, calling draw on a miss.
func (c *BaseComponent) render(content string, w int, draw func() string) string {
	if c.CheckCache(content, w) {
		return c.GetCached()
	}
	out := draw()
	c.UpdateCache(out)
	return out
}

// ComponentRegistry keeps panels in registration order.
type ComponentRegistry struct {
	order      []string
	components map[string]Component
}

// NewComponentRegistry creates a new registry
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{components: make(map[string]Component)}
}

// Register adds a component to the registry
func (r *ComponentRegistry) Register(comp Component) {
	id := comp.ID()
	if _, exists := r.components[id]; !exists {
		r.order = append(r.order, id)
	}
	r.components[id] = comp
}

// Get retrieves a component by ID
func (r *ComponentRegistry) Get(id string) Component {
	return r.components[id]
}

// All returns all registered components in registration order
func (r *ComponentRegistry) All() []Component {
	comps := make([]Component, 0, len(r.order))
	for _, id := range r.order {
		comps = append(comps, r.components[id])
	}
	return comps
}

// UpdateAll updates all components with new data in registration order
func (r *ComponentRegistry) UpdateAll(msg tea.Msg, data Data) []tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(r.order))
	for _, id := range r.order {
		updated, cmd := r.components[id].Update(msg, data)
		r.components[id] = updated
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}
