package router

import (
	"errors"
	"fmt"
	"strings"

	"github.com/waqiti-dev/deeplink/pkg/routepath"
)

// ErrInvalidPattern is returned for patterns that cannot be matched
// unambiguously.
var ErrInvalidPattern = errors.New("invalid route pattern")

// SegmentKind identifies the kind of a pattern segment.
type SegmentKind int

const (
	// Literal segments must equal the path segment exactly.
	Literal SegmentKind = iota
	// Required parameters (":name") consume one path segment.
	Required
	// Optional parameters (":name?") consume a path segment if present.
	Optional
)

// String returns the segment kind name.
func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Required:
		return "required"
	case Optional:
		return "optional"
	default:
		return "unknown"
	}
}

// Segment is one "/"-delimited element of a pattern.
type Segment struct {
	Kind SegmentKind

	// Value is the literal text, or the parameter name without ":" and "?".
	Value string
}

// Pattern is a compiled route pattern.
type Pattern struct {
	raw      string
	segments []Segment

	// required is the number of leading non-optional segments.
	required int
}

// ParsePattern compiles a pattern string.
//
// Empty segments are discarded, so "/pay/:id" and "pay/:id/" are equivalent.
// ParsePattern rejects empty parameter names, duplicate parameter names and
// required segments that follow an optional one.
func ParsePattern(raw string) (*Pattern, error) {
	p := &Pattern{raw: raw}
	seen := make(map[string]bool)
	sawOptional := false

	for _, part := range routepath.Segments(raw) {
		seg := parseSegment(part)

		if seg.Kind != Literal {
			if seg.Value == "" {
				return nil, fmt.Errorf("%w %q: empty parameter name", ErrInvalidPattern, raw)
			}
			if seen[seg.Value] {
				return nil, fmt.Errorf("%w %q: duplicate parameter %q", ErrInvalidPattern, raw, seg.Value)
			}
			seen[seg.Value] = true
		}

		switch {
		case seg.Kind == Optional:
			sawOptional = true
		case sawOptional:
			return nil, fmt.Errorf("%w %q: segment %q follows an optional parameter", ErrInvalidPattern, raw, part)
		default:
			p.required++
		}

		p.segments = append(p.segments, seg)
	}

	return p, nil
}

// MustParsePattern is like ParsePattern but panics on error.
// It is intended for package-level pattern tables.
func MustParsePattern(raw string) *Pattern {
	p, err := ParsePattern(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func parseSegment(part string) Segment {
	if !strings.HasPrefix(part, ":") {
		return Segment{Kind: Literal, Value: part}
	}
	name := part[1:]
	if strings.HasSuffix(name, "?") {
		return Segment{Kind: Optional, Value: strings.TrimSuffix(name, "?")}
	}
	return Segment{Kind: Required, Value: name}
}

// String returns the pattern as written.
func (p *Pattern) String() string {
	return p.raw
}

// Segments returns a copy of the compiled segments.
func (p *Pattern) Segments() []Segment {
	out := make([]Segment, len(p.segments))
	copy(out, p.segments)
	return out
}

// ParamNames returns the parameter names in pattern order.
func (p *Pattern) ParamNames() []string {
	var names []string
	for _, seg := range p.segments {
		if seg.Kind != Literal {
			names = append(names, seg.Value)
		}
	}
	return names
}

// Match matches an escaped path against the pattern.
//
// The path may have fewer segments than the pattern only when the missing
// segments are optional parameters; those names are left out of the returned
// Params. Literals must equal the escaped segment exactly, so "/p%61y" does not
// match "/pay". Parameter values are percent-decoded.
func (p *Pattern) Match(path string) (Params, bool) {
	parts := routepath.Segments(path)
	if len(parts) < p.required || len(parts) > len(p.segments) {
		return nil, false
	}

	params := make(Params)
	for i, seg := range p.segments {
		if i >= len(parts) {
			// Only optional segments remain.
			break
		}

		switch seg.Kind {
		case Literal:
			if parts[i] != seg.Value {
				return nil, false
			}
		case Required, Optional:
			value, err := routepath.DecodeSegment(parts[i])
			if err != nil {
				return nil, false
			}
			params[seg.Value] = value
		}
	}

	return params, true
}

// covers reports whether every path matched by other is also matched by p.
func (p *Pattern) covers(other *Pattern) bool {
	for n := other.required; n <= len(other.segments); n++ {
		if n < p.required || n > len(p.segments) {
			return false
		}
		for i := 0; i < n; i++ {
			mine, theirs := p.segments[i], other.segments[i]
			if mine.Kind != Literal {
				continue
			}
			if theirs.Kind != Literal || theirs.Value != mine.Value {
				return false
			}
		}
	}
	return true
}
