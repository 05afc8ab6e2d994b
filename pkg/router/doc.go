// Package router implements the deep-link pattern language and the ordered
// route registry.
//
// # Patterns
//
// A pattern is a "/"-delimited sequence of segments:
//
//	/pay/:merchantId          → literal "pay", required param "merchantId"
//	/settings/:section?       → literal "settings", optional param "section"
//	/user/me                  → two literals
//
// Optional parameters must be trailing. A required parameter after an optional
// one is ambiguous and is rejected by ParsePattern with ErrInvalidPattern.
//
// # Matching
//
// Registry.Match walks routes in registration order and returns the first
// whose pattern matches. There is no "most specific" search:
//
//	r.Register(router.Definition{Pattern: "/user/:id"}, h1)
//	r.Register(router.Definition{Pattern: "/user/me"}, h2)
//
//	e, params, _ := r.Match("/user/me")
//	// e.Pattern == "/user/:id", params["id"] == "me"
//
// Registry.Shadowed reports registrations that can never match because an
// earlier pattern always wins.
//
// # Link Generation
//
// GenerateURL is the inverse of matching. It fills placeholders, appends
// remaining params and attribution keys as a query string, and joins the result
// onto a base such as "waqiti://" or "https://waqiti.com".
package router
