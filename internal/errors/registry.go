package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category Category
	Message  string
	Detail   string
}

// Registered error codes.
const (
	ConfigNotFound     = "E100"
	ConfigInvalidJSON  = "E101"
	ConfigInvalidValue = "E102"
	ConfigEnvInvalid   = "E103"
	ConfigSeedInvalid  = "E104"
	ConfigWriteFailed  = "E105"

	CLIInvalidArgs        = "E200"
	CLIInvalidParam       = "E201"
	CLIServerFailed       = "E202"
	CLIStoreUnavailable   = "E203"
	CLIRecordsUnavailable = "E204"

	RouteInvalidPattern = "E300"
	RouteShadowed       = "E301"
	RouteMissingParam   = "E302"
	RouteGenerateFailed = "E303"
)

// registry maps error codes to their templates.
var registry = map[string]Template{
	// ============================================
	// Config Errors (E100-E199)
	// ============================================

	ConfigNotFound: {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "No deeplink.json was found in the current directory or any parent directory.",
	},
	ConfigInvalidJSON: {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "deeplink.json is not valid JSON or contains an unknown field.",
	},
	ConfigInvalidValue: {
		Category: CategoryConfig,
		Message:  "Invalid config value",
		Detail:   "A configuration value is outside its allowed range or set.",
	},
	ConfigEnvInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "A DEEPLINK_* environment variable could not be parsed into its config field.",
	},
	ConfigSeedInvalid: {
		Category: CategoryConfig,
		Message:  "Invalid records seed file",
		Detail:   "The records seed file could not be read or does not match the seed format.",
	},
	ConfigWriteFailed: {
		Category: CategoryConfig,
		Message:  "Config file could not be written",
	},

	// ============================================
	// CLI Errors (E200-E299)
	// ============================================

	CLIInvalidArgs: {
		Category: CategoryCLI,
		Message:  "Invalid arguments",
	},
	CLIInvalidParam: {
		Category: CategoryCLI,
		Message:  "Invalid parameter",
		Detail:   "Link parameters are given as key=value pairs.",
	},
	CLIServerFailed: {
		Category: CategoryCLI,
		Message:  "Server failed",
		Detail:   "The HTTP server stopped with an error. Check that the address is free.",
	},
	CLIStoreUnavailable: {
		Category: CategoryCLI,
		Message:  "Store unavailable",
		Detail:   "The pending-link store could not be opened.",
	},
	CLIRecordsUnavailable: {
		Category: CategoryCLI,
		Message:  "Records source unavailable",
		Detail:   "The domain record directory could not be created.",
	},

	// ============================================
	// Route Errors (E300-E399)
	// ============================================

	RouteInvalidPattern: {
		Category: CategoryRoute,
		Message:  "Invalid route pattern",
		Detail:   "Patterns start with '/', and optional segments may only be followed by optional segments.",
	},
	RouteShadowed: {
		Category: CategoryRoute,
		Message:  "Unreachable route",
		Detail:   "An earlier route matches every path this route would, so it can never be selected.",
	},
	RouteMissingParam: {
		Category: CategoryRoute,
		Message:  "Missing route parameter",
		Detail:   "Every required placeholder in the pattern needs a value.",
	},
	RouteGenerateFailed: {
		Category: CategoryRoute,
		Message:  "Link generation failed",
	},
}

// Codes returns all registered error codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
