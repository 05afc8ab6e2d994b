package analytics

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLogTracker(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	tr := NewLogTracker(logger)
	err := tr.Track(context.Background(), EventRouted, Props{"url": "waqiti://home", "success": true})
	if err != nil {
		t.Fatalf("Track() error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"event=deep_link_routed", "success=true", "url=waqiti://home"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestMultiCallsAllAndJoinsErrors(t *testing.T) {
	var a, b Recorder
	boom := errors.New("backend down")
	failing := TrackerFunc(func(context.Context, string, Props) error { return boom })

	err := Multi(&a, failing, nil, &b).Track(context.Background(), EventQueued, Props{"url": "x"})
	if !errors.Is(err, boom) {
		t.Errorf("Multi error = %v, want %v", err, boom)
	}
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("events a=%d b=%d, want 1 each", len(a.Events()), len(b.Events()))
	}
}

func TestRecorderCopiesProps(t *testing.T) {
	var r Recorder
	props := Props{"k": "v"}
	_ = r.Track(context.Background(), EventHandled, props)
	props["k"] = "changed"

	got := r.Named(EventHandled)
	if len(got) != 1 || got[0].Props["k"] != "v" {
		t.Errorf("Named() = %+v, want original props", got)
	}
	if len(r.Named(EventQueued)) != 0 {
		t.Error("Named(queued) should be empty")
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Track(context.Background(), EventRouted, nil); err != nil {
		t.Errorf("Nop.Track() = %v", err)
	}
}
