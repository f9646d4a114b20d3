package event

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Registration is one listener bound to an event type.
type Registration struct {
	// ID is the unique registration identifier.
	ID string

	// Type is the event type.
	Type Type

	// Listener is the callable invoked on dispatch.
	Listener Listener

	// Raw is an opaque back-reference to what the caller registered, for
	// callers that wrap their listeners before registering them.
	Raw any
}

// Registry manages listener registrations organized by event type.
// It is thread-safe for concurrent access.
type Registry struct {
	mu     sync.RWMutex
	byType map[Type][]*Registration
	byID   map[string]*Registration
}

// NewRegistry creates a new listener registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[Type][]*Registration),
		byID:   make(map[string]*Registration),
	}
}

// Add appends a registration for t and returns it. Registrations of the
// same type keep insertion order.
func (r *Registry) Add(t Type, l Listener, raw any) *Registration {
	reg := &Registration{
		ID:       uuid.NewString(),
		Type:     t,
		Listener: l,
		Raw:      raw,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byType[t] = append(r.byType[t], reg)
	r.byID[reg.ID] = reg
	return reg
}

// Remove removes a registration by ID.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, exists := r.byID[id]
	if !exists {
		return false
	}

	regs := r.byType[reg.Type]
	for i, x := range regs {
		if x.ID == id {
			r.byType[reg.Type] = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}

	// Clean up empty type entries
	if len(r.byType[reg.Type]) == 0 {
		delete(r.byType, reg.Type)
	}

	delete(r.byID, id)
	return true
}

// Get returns a registration by ID.
func (r *Registry) Get(id string) (*Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, exists := r.byID[id]
	return reg, exists
}

// ByType returns the registrations for t in insertion order.
// Returns a copy to prevent modification during iteration.
func (r *Registry) ByType(t Type) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := r.byType[t]
	if len(regs) == 0 {
		return nil
	}
	result := make([]*Registration, len(regs))
	copy(result, regs)
	return result
}

// Count returns the total number of registrations.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

// CountByType returns the number of registrations for t.
func (r *Registry) CountByType(t Type) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byType[t])
}

// Types returns the event types with at least one registration, sorted.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]Type, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Clear removes all registrations.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byType = make(map[Type][]*Registration)
	r.byID = make(map[string]*Registration)
}
