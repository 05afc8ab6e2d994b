package dispatch

// ActionType names the user action a failed Result asks for.
type ActionType string

const (
	ActionConfirm      ActionType = "confirm"
	ActionAuthenticate ActionType = "authenticate"
	ActionPermissions  ActionType = "permissions"
	ActionUpdate       ActionType = "update"
)

// Result is the outcome of a routing attempt and the only channel through
// which routing failures are reported.
type Result struct {
	Success bool `json:"success"`

	// Route is the logical destination: the one navigated to on success, the
	// fallback destination for ROUTE_NOT_FOUND, the sign-in destination for
	// AUTH_REQUIRED.
	Route string `json:"route,omitempty"`

	// Params are the typed parameters handed to the destination.
	Params map[string]any `json:"params,omitempty"`

	// Pattern is the pattern that matched, when one did.
	Pattern string `json:"pattern,omitempty"`

	ErrorCode    Code   `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`

	RequiresUserAction bool           `json:"requiresUserAction,omitempty"`
	ActionType         ActionType     `json:"actionType,omitempty"`
	ActionData         map[string]any `json:"actionData,omitempty"`

	// Queued is set on NAVIGATION_NOT_READY results; the request will be
	// replayed once the navigation host is ready.
	Queued bool `json:"queued,omitempty"`
}

// Success builds a successful Result.
func Success(route string, params map[string]any) Result {
	return Result{Success: true, Route: route, Params: params}
}

// Failure builds a failed Result. An empty msg is replaced by the code's
// default message.
func Failure(code Code, msg string) Result {
	if msg == "" {
		msg = code.Message()
	}
	return Result{ErrorCode: code, ErrorMessage: msg}
}

// Action builds a failed Result that asks the user to act.
func Action(code Code, action ActionType, data map[string]any) Result {
	r := Failure(code, "")
	r.RequiresUserAction = true
	r.ActionType = action
	r.ActionData = data
	return r
}

// Category returns the recovery category of a failed result, or "" for a
// successful one.
func (r Result) Category() Category {
	if r.Success {
		return ""
	}
	return r.ErrorCode.Category()
}

// Outcome is a low-cardinality label for the result: "success", the error
// code, or "unknown" for codes outside the closed set.
func (r Result) Outcome() string {
	if r.Success {
		return "success"
	}
	if !r.ErrorCode.Known() {
		return "unknown"
	}
	return string(r.ErrorCode)
}
