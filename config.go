package deeplink

import (
	"log/slog"

	"github.com/waqiti-dev/deeplink/pkg/analytics"
)

// =============================================================================
// Configuration Types
// =============================================================================

// Config configures a Manager.
type Config struct {
	// Links configures link generation.
	Links LinksConfig

	// Routing selects which strategy handles links first.
	Routing RoutingConfig

	// Logger is the structured logger. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Tracker receives the deep_link_handled event for every Handle call.
	// If nil, events are discarded.
	Tracker analytics.Tracker
}

// LinksConfig configures generated links.
type LinksConfig struct {
	// Scheme is the custom URI scheme (e.g., "waqiti").
	// Default: "waqiti".
	Scheme string

	// UniversalBase is the https origin used for universal links
	// (e.g., "https://waqiti.com"). Empty disables universal links.
	UniversalBase string
}

// Policy selects the primary routing strategy.
type Policy int

const (
	// PreferRouter routes with the pattern dispatcher first and falls back to
	// the legacy handler.
	PreferRouter Policy = iota

	// PreferLegacy routes with the legacy handler first and falls back to the
	// pattern dispatcher.
	PreferLegacy
)

// String returns the policy name.
func (p Policy) String() string {
	if p == PreferLegacy {
		return "prefer-legacy"
	}
	return "prefer-router"
}

// RoutingConfig configures strategy selection.
type RoutingConfig struct {
	// Policy selects the primary strategy. Default: PreferRouter.
	Policy Policy

	// LegacyEnabled allows the legacy handler to be used at all. When false
	// the dispatcher handles every link and Policy is ignored.
	LegacyEnabled bool
}

// DefaultLinksConfig returns the default link configuration.
func DefaultLinksConfig() LinksConfig {
	return LinksConfig{
		Scheme:        "waqiti",
		UniversalBase: "https://waqiti.com",
	}
}

// DefaultConfig returns a configuration with the router preferred and legacy
// fallback enabled.
func DefaultConfig() Config {
	return Config{
		Links:   DefaultLinksConfig(),
		Routing: RoutingConfig{Policy: PreferRouter, LegacyEnabled: true},
	}
}
