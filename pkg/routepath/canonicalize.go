package routepath

import (
	"errors"
	"net/url"
	"strings"
)

// Path canonicalization errors.
var (
	ErrBackslashInPath      = errors.New("path contains backslash")
	ErrNullByteInPath       = errors.New("path contains null byte")
	ErrInvalidPercentEscape = errors.New("invalid percent escape sequence")
)

// CanonicalizePath normalizes an escaped link path.
//
// The following transformations are applied:
//   - Ensure a leading slash
//   - Remove trailing slash (except for root "/")
//   - Collapse multiple slashes (/pay//x → /pay/x)
//
// "." and ".." are ordinary segments. They are never resolved, so
// "/promo/../pay/m1" stays four segments and cannot reach the /pay route.
//
// Paths containing a backslash, a NUL byte or an invalid percent-escape are
// rejected.
func CanonicalizePath(path string) (string, error) {
	if strings.Contains(path, "\\") {
		return "", ErrBackslashInPath
	}
	if strings.Contains(path, "\x00") || strings.Contains(strings.ToUpper(path), "%00") {
		return "", ErrNullByteInPath
	}
	if strings.Contains(path, "%") {
		if err := validatePercentEscapes(path); err != nil {
			return "", err
		}
	}

	return "/" + strings.Join(Segments(path), "/"), nil
}

// validatePercentEscapes checks that every '%' starts a %XX hex escape.
func validatePercentEscapes(path string) error {
	for i := 0; i < len(path); i++ {
		if path[i] != '%' {
			continue
		}
		if i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2]) {
			return ErrInvalidPercentEscape
		}
		i += 2
	}
	return nil
}

// repairPercentEscapes escapes every '%' that does not start a valid %XX
// sequence so the result always passes validatePercentEscapes.
func repairPercentEscapes(path string) string {
	if !strings.Contains(path, "%") {
		return path
	}
	var b strings.Builder
	b.Grow(len(path) + 4)
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '%' && (i+2 >= len(path) || !isHexDigit(path[i+1]) || !isHexDigit(path[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// DecodeSegment percent-decodes a single path segment.
// Paths are split before decoding, so an encoded slash stays inside the
// segment it was written in.
func DecodeSegment(segment string) (string, error) {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", ErrInvalidPercentEscape
	}
	return decoded, nil
}

// Segments splits an escaped path on "/" and discards empty segments.
// Segments are returned still escaped.
func Segments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitPathAndQuery splits a link into path and query components.
// The fragment, if any, is dropped and the query is returned without "?".
func SplitPathAndQuery(input string) (path, query string) {
	input, _, _ = strings.Cut(input, "#")
	path, query, _ = strings.Cut(input, "?")
	return path, query
}
