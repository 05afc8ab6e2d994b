package routepath

import (
	"net/url"
	"strings"
)

// Parsed is a link reduced to the parts the router cares about.
type Parsed struct {
	// Scheme is the lower-cased URI scheme ("waqiti", "https"), empty for bare paths.
	Scheme string

	// Host is the authority of web links. For custom schemes the authority is
	// folded into Path and Host is empty.
	Host string

	// Path is the canonical, still percent-escaped path. It always starts with "/".
	Path string

	// Query holds the decoded query parameters.
	Query url.Values

	// Strict reports whether the link was understood as a well-formed URI.
	// It is false when the lenient path+query fallback produced the result.
	Strict bool
}

// webSchemes are the schemes whose authority is a network host rather than
// the first routing segment.
var webSchemes = map[string]bool{
	"http":  true,
	"https": true,
}

// Parse turns a raw link into its path and query parameters.
//
// It first tries strict URI parsing. Custom-scheme links such as
// "waqiti://pay/m1" route on "/pay/m1"; web links such as
// "https://waqiti.com/pay/m1" route on their URL path. When strict parsing
// fails the raw string is split on the first "?" and the right side is read as
// "&"-joined key=value pairs.
//
// Parse reports false only when neither strategy yields a usable path.
func Parse(raw string) (Parsed, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.ContainsAny(raw, "\\\x00") {
		return Parsed{}, false
	}

	if p, ok := parseStrict(raw); ok {
		return p, true
	}
	return parseLenient(raw)
}

func parseStrict(raw string) (Parsed, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return Parsed{}, false
	}

	scheme := strings.ToLower(u.Scheme)
	var path string
	switch {
	case u.Opaque != "":
		// "waqiti:pay/m1"
		path = "/" + u.Opaque
	case scheme == "" || webSchemes[scheme]:
		path = u.EscapedPath()
	default:
		// u.Host is already unescaped; re-escape it so it reads like any
		// other segment.
		path = "/" + url.PathEscape(u.Host) + u.EscapedPath()
	}

	canon, err := CanonicalizePath(path)
	if err != nil {
		return Parsed{}, false
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Parsed{}, false
	}

	p := Parsed{
		Scheme: scheme,
		Path:   canon,
		Query:  query,
		Strict: true,
	}
	if webSchemes[scheme] {
		p.Host = u.Host
	}
	return p, true
}

func parseLenient(raw string) (Parsed, bool) {
	path, rawQuery := SplitPathAndQuery(raw)

	// Drop anything that looks like a scheme and authority prefix.
	if i := strings.Index(path, "://"); i >= 0 {
		path = path[i+len("://"):]
	}

	canon, err := CanonicalizePath(repairPercentEscapes(strings.ReplaceAll(path, " ", "%20")))
	if err != nil {
		return Parsed{}, false
	}

	return Parsed{
		Path:  canon,
		Query: parseQueryLenient(rawQuery),
	}, true
}

// parseQueryLenient decodes "&"-joined key=value pairs, keeping the raw text of
// any key or value that is not valid percent-encoding.
func parseQueryLenient(rawQuery string) url.Values {
	values := url.Values{}
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if v, err := url.QueryUnescape(value); err == nil {
			value = v
		}
		if key == "" {
			continue
		}
		values.Add(key, value)
	}
	return values
}
