package breakage

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/bondbreak/internal/ir"
)

// Handler names of the built-in breakage policies.
// These names are stable; scripts and configuration files refer to them.
const (
	HandlerSimplePairBond = "break_simple_pair_bond"
	HandlerCollisionBond  = "break_collision_bond"
	HandlerPrintEntry     = "print_queue_entry"
)

// UnknownHandlerName is reported by ActiveHandlersByName for a chain entry
// that no longer matches any registry entry.
const UnknownHandlerName = "Unknown"

// Handler is one breakage policy. It consumes a single event and may mutate
// the topology through env. Handlers report failures through env.Reporter
// and never return them.
//
// Handler values are compared by identity (reverse name lookup), so
// implementations must be pointer types with non-zero size.
type Handler interface {
	Handle(ctx context.Context, env *Env, ev ir.BreakEvent)
}

// funcHandler adapts a function to Handler while staying comparable.
type funcHandler struct {
	fn func(ctx context.Context, env *Env, ev ir.BreakEvent)
}

func (h *funcHandler) Handle(ctx context.Context, env *Env, ev ir.BreakEvent) {
	h.fn(ctx, env, ev)
}

// NewHandler wraps fn as a Handler. Each call returns a distinct handler.
func NewHandler(fn func(ctx context.Context, env *Env, ev ir.BreakEvent)) Handler {
	return &funcHandler{fn: fn}
}

// Entry is one (name, handler) pair in a Registry.
type Entry struct {
	Name    string
	Handler Handler
}

// Registry maps stable names to handlers.
//
// INVARIANTS:
//   - Names are unique
//   - A handler value appears under at most one name, so reverse lookup
//     by identity is well defined
//   - Entries never change after construction
type Registry struct {
	entries []Entry
	byName  map[string]Handler
}

// NewRegistry builds a registry from entries.
// Returns an error for empty names, nil handlers, duplicate names, or a
// handler registered under two names.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries: make([]Entry, 0, len(entries)),
		byName:  make(map[string]Handler, len(entries)),
	}

	for i, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("registry entry %d: empty name", i)
		}
		if e.Handler == nil {
			return nil, fmt.Errorf("registry entry %q: nil handler", e.Name)
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("registry entry %q: duplicate name", e.Name)
		}
		if other, ok := r.NameOf(e.Handler); ok {
			return nil, fmt.Errorf("registry entry %q: handler already registered as %q", e.Name, other)
		}
		r.entries = append(r.entries, e)
		r.byName[e.Name] = e.Handler
	}

	return r, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	entries := []Entry{
		{Name: HandlerSimplePairBond, Handler: &simplePairBond{name: HandlerSimplePairBond}},
		{Name: HandlerCollisionBond, Handler: &collisionBond{name: HandlerCollisionBond}},
		{Name: HandlerPrintEntry, Handler: &printQueueEntry{name: HandlerPrintEntry}},
	}
	r := &Registry{
		entries: entries,
		byName:  make(map[string]Handler, len(entries)),
	}
	for _, e := range entries {
		r.byName[e.Name] = e.Handler
	}
	return r
})

// DefaultRegistry returns the process-wide table of built-in handlers.
// It is built once and is read-only.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}

// Lookup resolves a handler by exact name.
// Unknown names return a *RuntimeError wrapping ErrHandlerNotFound.
func (r *Registry) Lookup(name string) (Handler, error) {
	h, ok := r.byName[name]
	if !ok {
		return nil, NewHandlerNotFoundError(name)
	}
	return h, nil
}

// NameOf finds the name registered for h by identity.
func (r *Registry) NameOf(h Handler) (string, bool) {
	for _, e := range r.entries {
		if e.Handler == h {
			return e.Name, true
		}
	}
	return "", false
}

// Names returns all registered names, sorted.
// Callers should treat the result as a set.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	return len(r.entries)
}
