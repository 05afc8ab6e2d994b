// Package errors provides structured, actionable errors for the deeplink
// command and its configuration loader.
//
// # Error Categories
//
//   - config: deeplink.json and DEEPLINK_* environment problems
//   - cli: bad command arguments and unavailable backing services
//   - route: invalid route patterns and link generation failures
//
// # Error Codes
//
// Each error has a unique code that maps to a short message and a detailed
// explanation. Codes are grouped by category: E1xx config, E2xx cli and
// E3xx route.
//
// # Usage
//
//	err := errors.New("E101").
//	    WithLocation("deeplink.json", 7, 14).
//	    WithSuggestion("Remove the trailing comma after \"scheme\"")
//
//	fmt.Println(err.Format())
//	// Output:
//	// ERROR E101: Invalid config file
//	//
//	//   deeplink.json:7:14
//	//
//	//      5 │   "links": {
//	//      6 │     "scheme": "waqiti",
//	//   →  7 │   },
//	//        │              ^
//	//      8 │   "routing": {
//	//      9 │     "legacyEnabled": true
//	//
//	//   Hint: Remove the trailing comma after "scheme"
package errors
