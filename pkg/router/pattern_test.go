package router

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("/a/:x/:y?")
	if err != nil {
		t.Fatalf("ParsePattern() error: %v", err)
	}

	want := []Segment{
		{Kind: Literal, Value: "a"},
		{Kind: Required, Value: "x"},
		{Kind: Optional, Value: "y"},
	}
	if got := p.Segments(); !reflect.DeepEqual(got, want) {
		t.Errorf("Segments() = %+v, want %+v", got, want)
	}
	if got := p.ParamNames(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("ParamNames() = %v, want [x y]", got)
	}
	if p.String() != "/a/:x/:y?" {
		t.Errorf("String() = %q, want %q", p.String(), "/a/:x/:y?")
	}
}

func TestParsePatternRejects(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
	}{
		{"required after optional", "/a/:x?/:y"},
		{"literal after optional", "/a/:x?/b"},
		{"empty param name", "/a/:"},
		{"empty optional name", "/a/:?"},
		{"duplicate param", "/a/:id/:id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePattern(tt.pattern)
			if !errors.Is(err, ErrInvalidPattern) {
				t.Errorf("ParsePattern(%q) error = %v, want ErrInvalidPattern", tt.pattern, err)
			}
		})
	}
}

func TestPatternMatchSegmentCounts(t *testing.T) {
	p := MustParsePattern("/a/:x/:y?")

	tests := []struct {
		path       string
		wantMatch  bool
		wantParams Params
	}{
		{"/a/1", true, Params{"x": "1"}},
		{"/a/1/2", true, Params{"x": "1", "y": "2"}},
		{"/a", false, nil},
		{"/a/1/2/3", false, nil},
		{"/b/1", false, nil},
	}

	for _, tt := range tests {
		params, ok := p.Match(tt.path)
		if ok != tt.wantMatch {
			t.Errorf("Match(%q) ok = %v, want %v", tt.path, ok, tt.wantMatch)
			continue
		}
		if ok && !reflect.DeepEqual(params, tt.wantParams) {
			t.Errorf("Match(%q) params = %v, want %v", tt.path, params, tt.wantParams)
		}
	}
}

func TestPatternMatchOmitsMissingOptional(t *testing.T) {
	p := MustParsePattern("/settings/:section?")
	params, ok := p.Match("/settings")
	if !ok {
		t.Fatal("expected match for /settings")
	}
	if _, present := params["section"]; present {
		t.Error("missing optional param should be omitted, not set")
	}
}

func TestPatternMatchDecodesParams(t *testing.T) {
	p := MustParsePattern("/user/:name")
	params, ok := p.Match("/user/Jane%20Doe")
	if !ok {
		t.Fatal("expected match")
	}
	if params["name"] != "Jane Doe" {
		t.Errorf("params[name] = %q, want %q", params["name"], "Jane Doe")
	}
}

func TestPatternMatchLiteralsExact(t *testing.T) {
	p := MustParsePattern("/pay/:merchantId")
	tests := []struct {
		path  string
		match bool
		id    string
	}{
		{"/pay/m1", true, "m1"},
		{"/p%61y/m1", false, ""},
		{"/pay/%2E%2E", true, ".."},
		{"/promo/../pay/m1", false, ""},
		{"/pay/./m1", false, ""},
	}
	for _, tt := range tests {
		params, ok := p.Match(tt.path)
		if ok != tt.match {
			t.Errorf("Match(%q) ok = %v, want %v", tt.path, ok, tt.match)
			continue
		}
		if ok && params["merchantId"] != tt.id {
			t.Errorf("Match(%q) merchantId = %q, want %q", tt.path, params["merchantId"], tt.id)
		}
	}
}

func TestPatternMatchCaseSensitive(t *testing.T) {
	p := MustParsePattern("/Pay/:id")
	if _, ok := p.Match("/pay/1"); ok {
		t.Error("literal matching must be case-sensitive")
	}
}

func TestPatternMatchRoot(t *testing.T) {
	p := MustParsePattern("/")
	if _, ok := p.Match("/"); !ok {
		t.Error("root pattern should match /")
	}
	if _, ok := p.Match("/home"); ok {
		t.Error("root pattern should not match /home")
	}
}

func TestParamsFloat(t *testing.T) {
	p := Params{"amount": "25.50", "bad": "x"}

	f, ok, err := p.Float("amount")
	if err != nil || !ok || f != 25.5 {
		t.Errorf("Float(amount) = %v, %v, %v; want 25.5, true, nil", f, ok, err)
	}
	if _, ok, err := p.Float("missing"); ok || err != nil {
		t.Errorf("Float(missing) ok = %v, err = %v; want false, nil", ok, err)
	}
	if _, _, err := p.Float("bad"); err == nil {
		t.Error("Float(bad) expected error")
	}
}
