package routepath

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPath   string
		wantQuery  map[string]string
		wantStrict bool
	}{
		{
			name:       "custom scheme folds host into path",
			input:      "app://pay/merchant123?amount=25.50",
			wantPath:   "/pay/merchant123",
			wantQuery:  map[string]string{"amount": "25.50"},
			wantStrict: true,
		},
		{
			name:       "custom scheme with empty authority",
			input:      "waqiti:///request/r1",
			wantPath:   "/request/r1",
			wantStrict: true,
		},
		{
			name:       "web link routes on url path",
			input:      "https://waqiti.com/user/u1?utm_source=email",
			wantPath:   "/user/u1",
			wantQuery:  map[string]string{"utm_source": "email"},
			wantStrict: true,
		},
		{
			name:       "bare path",
			input:      "/promo/SUMMER",
			wantPath:   "/promo/SUMMER",
			wantStrict: true,
		},
		{
			name:       "bare path without leading slash",
			input:      "settings/security",
			wantPath:   "/settings/security",
			wantStrict: true,
		},
		{
			name:       "trailing slash and duplicate slashes",
			input:      "waqiti://pay//m1/",
			wantPath:   "/pay/m1",
			wantStrict: true,
		},
		{
			name:       "query values decoded",
			input:      "/send?note=lunch%20money&amount=5",
			wantPath:   "/send",
			wantQuery:  map[string]string{"note": "lunch money", "amount": "5"},
			wantStrict: true,
		},
		{
			name:       "dot segments kept",
			input:      "waqiti://promo/../pay/m1",
			wantPath:   "/promo/../pay/m1",
			wantStrict: true,
		},
		{
			name:       "escaped dots kept",
			input:      "waqiti://user/%2E%2E",
			wantPath:   "/user/%2E%2E",
			wantStrict: true,
		},
		{
			name:       "fragment dropped",
			input:      "waqiti://home#top",
			wantPath:   "/home",
			wantStrict: true,
		},
		{
			name:      "invalid path escape falls back",
			input:     "app://pay/100%?amount=5",
			wantPath:  "/pay/100%25",
			wantQuery: map[string]string{"amount": "5"},
		},
		{
			name:      "invalid query escape falls back",
			input:     "/pay/m1?note=%zz&amount=3",
			wantPath:  "/pay/m1",
			wantQuery: map[string]string{"note": "%zz", "amount": "3"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Parse(tc.input)
			if !ok {
				t.Fatalf("Parse(%q) ok = false, want true", tc.input)
			}
			if got.Path != tc.wantPath {
				t.Errorf("Parse(%q).Path = %q, want %q", tc.input, got.Path, tc.wantPath)
			}
			if got.Strict != tc.wantStrict {
				t.Errorf("Parse(%q).Strict = %v, want %v", tc.input, got.Strict, tc.wantStrict)
			}
			for k, want := range tc.wantQuery {
				if v := got.Query.Get(k); v != want {
					t.Errorf("Parse(%q).Query[%q] = %q, want %q", tc.input, k, v, want)
				}
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"/pay\\m1",
		"/pay/%00",
	}
	for _, in := range inputs {
		if _, ok := Parse(in); ok {
			t.Errorf("Parse(%q) ok = true, want false", in)
		}
	}
}

func TestParseIsPure(t *testing.T) {
	a, _ := Parse("waqiti://pay/m1?amount=1")
	b, _ := Parse("waqiti://pay/m1?amount=1")
	if a.Path != b.Path || a.Query.Encode() != b.Query.Encode() {
		t.Errorf("Parse not deterministic: %+v vs %+v", a, b)
	}
}

func TestCanonicalizePath(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr error
	}{
		{"/", "/", nil},
		{"", "/", nil},
		{"pay", "/pay", nil},
		{"/pay/./m1", "/pay/./m1", nil},
		{"/pay/x/../m1", "/pay/x/../m1", nil},
		{"/path/%2Fok", "/path/%2Fok", nil},
		{"/../secret", "/../secret", nil},
		{"/path/%2", "", ErrInvalidPercentEscape},
		{"/path/%GG", "", ErrInvalidPercentEscape},
		{"/a\\b", "", ErrBackslashInPath},
	}

	for _, tc := range tests {
		got, err := CanonicalizePath(tc.input)
		if err != tc.wantErr {
			t.Errorf("CanonicalizePath(%q) error = %v, want %v", tc.input, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("CanonicalizePath(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestDecodeSegment(t *testing.T) {
	if got, err := DecodeSegment("merchant%20one"); err != nil || got != "merchant one" {
		t.Errorf("DecodeSegment = %q, %v; want %q, nil", got, err, "merchant one")
	}
	if got, err := DecodeSegment("a%2Fb"); err != nil || got != "a/b" {
		t.Errorf("DecodeSegment(a%%2Fb) = %q, %v; want %q, nil", got, err, "a/b")
	}
	if _, err := DecodeSegment("%zz"); err != ErrInvalidPercentEscape {
		t.Errorf("DecodeSegment(%%zz) error = %v, want %v", err, ErrInvalidPercentEscape)
	}
}

func TestSegments(t *testing.T) {
	got := Segments("/a//b/")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Segments = %v, want [a b]", got)
	}
	if got := Segments("/"); len(got) != 0 {
		t.Errorf("Segments(/) = %v, want []", got)
	}
}
