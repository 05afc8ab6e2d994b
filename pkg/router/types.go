package router

import (
	"fmt"
	"strconv"
)

// Meta describes a route for introspection and documentation.
type Meta struct {
	// Category groups related routes (e.g., "payments", "social").
	Category string `json:"category,omitempty"`

	// Description is a human-readable summary of the destination.
	Description string `json:"description,omitempty"`

	// Public marks routes that may be shared outside the app.
	Public bool `json:"public"`
}

// Definition is the pattern-matching view of a route: everything about it
// except the handler.
type Definition struct {
	// Pattern is the route pattern (e.g., "/pay/:merchantId").
	Pattern string `json:"pattern"`

	// RequiresAuth gates the route on an authenticated user.
	RequiresAuth bool `json:"requiresAuth"`

	// Permission, when set, must be present in the user's permission set.
	Permission string `json:"permission,omitempty"`

	// Meta carries descriptive metadata.
	Meta Meta `json:"meta"`
}

// Params holds route parameters by name. Values are percent-decoded.
type Params map[string]string

// Get returns the named parameter and whether it was present.
func (p Params) Get(name string) (string, bool) {
	v, ok := p[name]
	return v, ok
}

// Float parses the named parameter as a float64.
// A missing parameter returns (0, false, nil).
func (p Params) Float(name string) (float64, bool, error) {
	v, ok := p[name]
	if !ok || v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, true, fmt.Errorf("param %q: invalid number %q", name, v)
	}
	return f, true, nil
}

// Clone returns a copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
