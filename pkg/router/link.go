package router

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrMissingParam is returned when a link cannot be generated because a
// required placeholder has no value.
var ErrMissingParam = errors.New("missing route parameter")

// Attribution query keys.
const (
	QuerySource   = "utm_source"
	QueryCampaign = "utm_campaign"
)

// LinkOptions configures link generation.
type LinkOptions struct {
	// Base is prepended to the generated path. A base ending in "://"
	// ("waqiti://") produces custom-scheme links where the first segment
	// becomes the authority; any other base ("https://waqiti.com") is joined
	// with the path as is. An empty base yields a bare path.
	Base string

	// Source is written as utm_source.
	Source string

	// Campaign is written as utm_campaign.
	Campaign string

	// Attribution holds additional attribution pairs, written as given.
	Attribution map[string]string
}

// Build substitutes params into the pattern and returns the escaped path.
// Params not consumed by placeholders are returned as leftover.
func (p *Pattern) Build(params map[string]string) (path string, leftover map[string]string, err error) {
	used := make(map[string]bool)
	parts := make([]string, 0, len(p.segments))

	for i, seg := range p.segments {
		if seg.Kind == Literal {
			parts = append(parts, url.PathEscape(seg.Value))
			continue
		}

		value, ok := params[seg.Value]
		if !ok || value == "" {
			if seg.Kind == Required {
				return "", nil, fmt.Errorf("%w %q for %q", ErrMissingParam, seg.Value, p.raw)
			}
			// A later optional value cannot be expressed without this one.
			for _, rest := range p.segments[i+1:] {
				if v := params[rest.Value]; v != "" {
					return "", nil, fmt.Errorf("%w %q for %q", ErrMissingParam, seg.Value, p.raw)
				}
			}
			break
		}

		used[seg.Value] = true
		parts = append(parts, escapeValue(value))
	}

	leftover = make(map[string]string)
	for k, v := range params {
		if !used[k] && v != "" {
			leftover[k] = v
		}
	}

	return "/" + strings.Join(parts, "/"), leftover, nil
}

// escapeValue escapes a placeholder value. "." and ".." are written as
// escapes so browsers and URL resolvers that collapse dot segments pass them
// through unchanged.
func escapeValue(value string) string {
	switch value {
	case ".":
		return "%2E"
	case "..":
		return "%2E%2E"
	}
	return url.PathEscape(value)
}

// GenerateURL is the inverse of matching: it fills the pattern's placeholders
// with encoded values and appends leftover params and attribution pairs as a
// query string.
//
// Example:
//
//	GenerateURL("/pay/:merchantId", map[string]string{"merchantId": "m1", "amount": "5"},
//	    LinkOptions{Base: "waqiti://", Source: "qr"})
//	// "waqiti://pay/m1?amount=5&utm_source=qr"
func GenerateURL(pattern string, params map[string]string, opts LinkOptions) (string, error) {
	p, err := ParsePattern(pattern)
	if err != nil {
		return "", err
	}

	path, leftover, err := p.Build(params)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	for k, v := range leftover {
		q.Set(k, v)
	}
	for k, v := range opts.Attribution {
		q.Set(k, v)
	}
	if opts.Source != "" {
		q.Set(QuerySource, opts.Source)
	}
	if opts.Campaign != "" {
		q.Set(QueryCampaign, opts.Campaign)
	}

	link := joinBase(opts.Base, path)
	if len(q) > 0 {
		link += "?" + q.Encode()
	}
	return link, nil
}

func joinBase(base, path string) string {
	switch {
	case base == "":
		return path
	case strings.HasSuffix(base, "://"):
		return base + strings.TrimPrefix(path, "/")
	default:
		return strings.TrimSuffix(base, "/") + path
	}
}
