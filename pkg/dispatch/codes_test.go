package dispatch

import (
	"testing"
	"time"
)

var fixedTime = time.Unix(1_700_000_000, 0)

func TestCodeCategory(t *testing.T) {
	tests := []struct {
		code Code
		want Category
	}{
		{CodeInvalidURL, CategoryStructural},
		{CodeRouteNotFound, CategoryStructural},
		{CodeNavigationNotReady, CategoryStructural},
		{CodeAuthRequired, CategoryAuthorization},
		{CodePermissionDenied, CategoryAuthorization},
		{CodeRoutingError, CategoryInternal},
		{CodeHandlingError, CategoryInternal},
		{CodeRouteTimeout, CategoryInternal},
		{CodeMerchantNotFound, CategoryDomain},
		{CodeRequestExpired, CategoryDomain},
		{CodeUnauthorized, CategoryDomain},
		{Code("SOMETHING_ELSE"), CategoryUnknown},
	}
	for _, tt := range tests {
		if got := tt.code.Category(); got != tt.want {
			t.Errorf("%s.Category() = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestEveryCodeHasMessage(t *testing.T) {
	codes := Codes()
	if len(codes) != 22 {
		t.Errorf("len(Codes()) = %d, want 22", len(codes))
	}
	for _, c := range codes {
		if c.Message() == "" {
			t.Errorf("%s has no default message", c)
		}
		if !c.Known() {
			t.Errorf("%s not Known()", c)
		}
	}
}

func TestFailure(t *testing.T) {
	r := Failure(CodeRouteNotFound, "")
	if r.Success || r.ErrorCode != CodeRouteNotFound || r.ErrorMessage != CodeRouteNotFound.Message() {
		t.Errorf("Failure() = %+v", r)
	}

	r = Failure(CodeHandlingError, "merchant service unavailable")
	if r.ErrorMessage != "merchant service unavailable" {
		t.Errorf("ErrorMessage = %q", r.ErrorMessage)
	}
}

func TestAction(t *testing.T) {
	r := Action(CodePermissionDenied, ActionPermissions, map[string]any{"permission": "camera"})
	if !r.RequiresUserAction || r.ActionType != ActionPermissions || r.ActionData["permission"] != "camera" {
		t.Errorf("Action() = %+v", r)
	}
	if r.Category() != CategoryAuthorization {
		t.Errorf("Category() = %q, want authorization", r.Category())
	}
}

func TestResultOutcome(t *testing.T) {
	tests := []struct {
		r    Result
		want string
	}{
		{Success("Home", nil), "success"},
		{Failure(CodeRouteTimeout, ""), "ROUTE_TIMEOUT"},
		{Result{ErrorCode: "CUSTOM"}, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.r.Outcome(); got != tt.want {
			t.Errorf("Outcome() = %q, want %q", got, tt.want)
		}
	}
}

func TestQueueFIFO(t *testing.T) {
	var q queue
	for _, u := range []string{"a", "b", "c"} {
		q.push(u, Partial{}, fixedTime)
	}
	if q.len() != 3 {
		t.Fatalf("len() = %d, want 3", q.len())
	}

	snap := q.snapshot()
	for i, want := range []string{"a", "b", "c"} {
		e, ok := q.pop()
		if !ok || e.URL != want {
			t.Fatalf("pop() #%d = %q, %v; want %q", i, e.URL, ok, want)
		}
		if e.ID == "" || e.ID != snap[i].ID {
			t.Errorf("entry %d ID = %q, snapshot ID = %q", i, e.ID, snap[i].ID)
		}
	}
	if _, ok := q.pop(); ok {
		t.Error("pop() on empty queue returned an entry")
	}
}
