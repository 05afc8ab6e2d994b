package router

import (
	"fmt"
	"sync"
)

// Entry is one registered route.
type Entry[T any] struct {
	Definition

	// Value is the payload bound to the pattern, typically a handler.
	Value T

	pattern *Pattern
}

// Compiled returns the compiled pattern.
func (e *Entry[T]) Compiled() *Pattern {
	return e.pattern
}

// Registry is an ordered, append-only collection of routes.
//
// Registration order is significant: Match returns the first entry whose
// pattern matches, even if a later entry is more specific.
type Registry[T any] struct {
	mu      sync.RWMutex
	entries []*Entry[T]
}

// NewRegistry creates an empty registry.
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{}
}

// Register appends a route. The pattern is compiled and validated first; an
// invalid pattern leaves the registry unchanged.
func (r *Registry[T]) Register(def Definition, value T) error {
	pattern, err := ParsePattern(def.Pattern)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &Entry[T]{
		Definition: def,
		Value:      value,
		pattern:    pattern,
	})
	return nil
}

// All returns the routes in registration order.
func (r *Registry[T]) All() []*Entry[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry[T], len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of registered routes.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Match returns the first route, in registration order, whose pattern matches
// path. Matching stops at the first success.
func (r *Registry[T]) Match(path string) (*Entry[T], Params, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if params, ok := e.pattern.Match(path); ok {
			return e, params, true
		}
	}
	return nil, nil, false
}

// Shadow records a route that can never match because an earlier route
// matches every path it would.
type Shadow struct {
	Pattern    string
	ShadowedBy string
}

// String formats the shadow for diagnostics.
func (s Shadow) String() string {
	return fmt.Sprintf("%s is shadowed by %s", s.Pattern, s.ShadowedBy)
}

// Shadowed lists routes that are unreachable under first-match-wins.
// It is a diagnostic only and never affects matching.
func (r *Registry[T]) Shadowed() []Shadow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Shadow
	for i, later := range r.entries {
		for _, earlier := range r.entries[:i] {
			if earlier.pattern.covers(later.pattern) {
				out = append(out, Shadow{Pattern: later.Pattern, ShadowedBy: earlier.Pattern})
				break
			}
		}
	}
	return out
}
