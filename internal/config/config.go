package config

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/waqiti-dev/deeplink/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "deeplink.json"

	// EnvPrefix prefixes every environment override.
	EnvPrefix = "DEEPLINK_"

	// DefaultScheme is the custom URI scheme for generated links.
	DefaultScheme = "waqiti"

	// DefaultUniversalBase is the https origin for universal links.
	DefaultUniversalBase = "https://waqiti.com"

	// DefaultAddr is the HTTP listen address.
	DefaultAddr = ":8080"

	// DefaultHostPath is the websocket navigation host endpoint.
	DefaultHostPath = "/v1/host"

	// DefaultTimeout bounds a single routing attempt.
	DefaultTimeout = 10 * time.Second

	// DefaultPendingTTL is how long a link waiting on sign-in is kept.
	DefaultPendingTTL = 30 * time.Minute

	// DefaultSQLitePath is the database file used by the sqlite store.
	DefaultSQLitePath = "deeplink.db"

	// DefaultNamespace is the Prometheus namespace.
	DefaultNamespace = "deeplink"

	// DefaultServiceName is the service.name reported with traces.
	DefaultServiceName = "deeplink"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Record sources.
const (
	RecordsMemory = "memory"
	RecordsS3     = "s3"
)

// Config represents the complete deeplink.json configuration.
// Every field can be overridden by a DEEPLINK_* environment variable,
// applied by ApplyEnv after the file is read.
type Config struct {
	// Links configures generated links and navigation targets.
	Links LinksConfig `json:"links" envPrefix:"LINKS_"`

	// Routing selects and bounds the routing strategies.
	Routing RoutingConfig `json:"routing" envPrefix:"ROUTING_"`

	// Server configures the HTTP surface.
	Server ServerConfig `json:"server" envPrefix:"SERVER_"`

	// Store configures where pending links are kept.
	Store StoreConfig `json:"store" envPrefix:"STORE_"`

	// Records configures the domain record directory.
	Records RecordsConfig `json:"records" envPrefix:"RECORDS_"`

	// Auth configures bearer token verification.
	Auth AuthConfig `json:"auth" envPrefix:"AUTH_"`

	// Metrics configures Prometheus collection.
	Metrics MetricsConfig `json:"metrics" envPrefix:"METRICS_"`

	// Tracing configures OpenTelemetry export.
	Tracing TracingConfig `json:"tracing" envPrefix:"TRACING_"`

	// configPath is the path the config was loaded from.
	configPath string
}

// LinksConfig configures generated links.
type LinksConfig struct {
	// Scheme is the custom URI scheme (e.g., "waqiti").
	Scheme string `json:"scheme,omitempty" env:"SCHEME"`

	// UniversalBase is the https origin for universal links.
	// Empty disables universal links.
	UniversalBase string `json:"universalBase,omitempty" env:"UNIVERSAL_BASE"`

	// DefaultDestination is navigated to when no route matches.
	DefaultDestination string `json:"defaultDestination,omitempty" env:"DEFAULT_DESTINATION"`

	// AuthDestination is navigated to when a route needs a signed-in user.
	AuthDestination string `json:"authDestination,omitempty" env:"AUTH_DESTINATION"`
}

// RoutingConfig configures strategy selection.
type RoutingConfig struct {
	// PreferNewRouter routes with the pattern dispatcher first.
	PreferNewRouter bool `json:"preferNewRouter" env:"PREFER_NEW_ROUTER"`

	// LegacyEnabled allows the legacy handler to be used at all.
	LegacyEnabled bool `json:"legacyEnabled" env:"LEGACY_ENABLED"`

	// Timeout bounds a single routing attempt.
	Timeout Duration `json:"timeout,omitempty" env:"TIMEOUT"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty" env:"ADDR"`

	// HostPath is the websocket navigation host endpoint.
	HostPath string `json:"hostPath,omitempty" env:"HOST_PATH"`

	// TrustedProxies lists proxy IPs or CIDRs whose forwarding headers are
	// believed.
	TrustedProxies []string `json:"trustedProxies,omitempty" env:"TRUSTED_PROXIES" envSeparator:","`
}

// StoreConfig configures the pending-link store.
type StoreConfig struct {
	// Driver is "memory" or "sqlite".
	Driver string `json:"driver,omitempty" env:"DRIVER"`

	// Path is the sqlite database file.
	Path string `json:"path,omitempty" env:"PATH"`

	// TTL is how long a pending link is kept.
	TTL Duration `json:"ttl,omitempty" env:"TTL"`
}

// RecordsConfig configures the domain record directory.
type RecordsConfig struct {
	// Source is "memory" or "s3".
	Source string `json:"source,omitempty" env:"SOURCE"`

	// SeedFile is a JSON seed loaded into the memory directory.
	SeedFile string `json:"seedFile,omitempty" env:"SEED_FILE"`

	// Bucket is the S3 bucket holding one object per record.
	Bucket string `json:"bucket,omitempty" env:"BUCKET"`

	// Prefix is prepended to every S3 object key.
	Prefix string `json:"prefix,omitempty" env:"PREFIX"`

	// Region overrides the AWS region from the shared config.
	Region string `json:"region,omitempty" env:"REGION"`
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	// JWTSecret is the HMAC key. Empty disables bearer tokens.
	JWTSecret string `json:"jwtSecret,omitempty" env:"JWT_SECRET"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `json:"issuer,omitempty" env:"ISSUER"`
}

// MetricsConfig configures Prometheus collection.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" env:"ENABLED"`
	Namespace string `json:"namespace,omitempty" env:"NAMESPACE"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled     bool   `json:"enabled" env:"ENABLED"`
	Endpoint    string `json:"endpoint,omitempty" env:"ENDPOINT"`
	ServiceName string `json:"serviceName,omitempty" env:"SERVICE_NAME"`
	TracerName  string `json:"tracerName,omitempty" env:"TRACER_NAME"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Links: LinksConfig{
			Scheme:             DefaultScheme,
			UniversalBase:      DefaultUniversalBase,
			DefaultDestination: "Home",
			AuthDestination:    "Login",
		},
		Routing: RoutingConfig{
			PreferNewRouter: true,
			LegacyEnabled:   true,
			Timeout:         Duration(DefaultTimeout),
		},
		Server: ServerConfig{
			Addr:     DefaultAddr,
			HostPath: DefaultHostPath,
		},
		Store: StoreConfig{
			Driver: StoreMemory,
			TTL:    Duration(DefaultPendingTTL),
		},
		Records: RecordsConfig{
			Source: RecordsMemory,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			ServiceName: DefaultServiceName,
		},
	}
}

// Load loads configuration from the given directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile loads configuration from a specific file path.
// Unknown fields are rejected.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ConfigNotFound).
				WithDetail("No " + ConfigFileName + " found at " + path).
				WithSuggestion("Run 'deeplink config init' to write the defaults")
		}
		return nil, errors.New(errors.ConfigInvalidJSON).Wrap(err)
	}

	cfg := New()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, decodeError(path, data, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()

	return cfg, nil
}

// decodeError points a JSON decoding failure at its position in the file.
func decodeError(path string, data []byte, err error) error {
	le := errors.New(errors.ConfigInvalidJSON).Wrap(err)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case stderrors.As(err, &syntaxErr):
		return le.WithOffset(path, data, syntaxErr.Offset).
			WithSuggestion("Check for trailing commas and unquoted keys")
	case stderrors.As(err, &typeErr):
		return le.WithOffset(path, data, typeErr.Offset).
			WithSuggestion("Field " + typeErr.Field + " expects a " + typeErr.Type.String())
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return le.WithSuggestion("Remove the field or check its spelling")
	}
	return le
}

// ApplyEnv overrides fields from DEEPLINK_* environment variables, e.g.
// DEEPLINK_SERVER_ADDR or DEEPLINK_ROUTING_TIMEOUT.
func (c *Config) ApplyEnv() error {
	return c.applyEnv(nil)
}

// applyEnv parses overrides from environ, or the process environment when
// environ is nil.
func (c *Config) applyEnv(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return errors.New(errors.ConfigEnvInvalid).Wrap(err)
	}
	c.applyDefaults()
	return nil
}

// Save saves the configuration to its original path.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New(errors.ConfigWriteFailed).WithDetail("No config path set")
	}
	return c.SaveTo(c.configPath)
}

// SaveTo saves the configuration to a specific path. The JWT secret is never
// written.
func (c *Config) SaveTo(path string) error {
	out := *c
	out.Auth.JWTSecret = ""

	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return errors.New(errors.ConfigWriteFailed).Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New(errors.ConfigWriteFailed).Wrap(err)
	}

	c.configPath = path
	return nil
}

// Path returns the path to the configuration file.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the configuration file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills empty string and duration fields. Booleans keep the
// value read from the file.
func (c *Config) applyDefaults() {
	if c.Links.Scheme == "" {
		c.Links.Scheme = DefaultScheme
	}
	if c.Links.DefaultDestination == "" {
		c.Links.DefaultDestination = "Home"
	}
	if c.Links.AuthDestination == "" {
		c.Links.AuthDestination = "Login"
	}
	if c.Routing.Timeout == 0 {
		c.Routing.Timeout = Duration(DefaultTimeout)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.HostPath == "" {
		c.Server.HostPath = DefaultHostPath
	}
	if c.Store.Driver == "" {
		c.Store.Driver = StoreMemory
	}
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = DefaultSQLitePath
	}
	if c.Records.Source == "" {
		c.Records.Source = RecordsMemory
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = DefaultServiceName
	}
}

var schemePattern = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !schemePattern.MatchString(c.Links.Scheme) {
		return c.invalid("links.scheme", "Scheme must be lowercase letters, digits, '+', '-' or '.', starting with a letter").
			WithExample(`"scheme": "waqiti"`)
	}
	if c.Links.Scheme == "http" || c.Links.Scheme == "https" {
		return c.invalid("links.scheme", "Use universalBase for web links; the custom scheme cannot be http or https")
	}
	if c.Links.UniversalBase != "" {
		u, err := url.Parse(c.Links.UniversalBase)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return c.invalid("links.universalBase", "Universal links need an https origin").
				WithExample(`"universalBase": "https://waqiti.com"`)
		}
	}
	if c.Routing.Timeout < 0 {
		return c.invalid("routing.timeout", "Timeout must be positive")
	}
	if !strings.HasPrefix(c.Server.HostPath, "/") {
		return c.invalid("server.hostPath", "Host path must start with '/'")
	}
	switch c.Store.Driver {
	case StoreMemory, StoreSQLite:
	default:
		return c.invalid("store.driver", "Store driver must be \"memory\" or \"sqlite\", got \""+c.Store.Driver+"\"")
	}
	if c.Store.TTL < 0 {
		return c.invalid("store.ttl", "TTL cannot be negative")
	}
	switch c.Records.Source {
	case RecordsMemory:
	case RecordsS3:
		if c.Records.Bucket == "" {
			return c.invalid("records.bucket", "The s3 records source needs a bucket")
		}
	default:
		return c.invalid("records.source", "Records source must be \"memory\" or \"s3\", got \""+c.Records.Source+"\"")
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return c.invalid("tracing.endpoint", "Tracing is enabled but no OTLP endpoint is set")
	}
	return nil
}

// invalid builds a ConfigInvalidValue error for field, located in the file
// when the config was loaded from one.
func (c *Config) invalid(field, detail string) *errors.LinkError {
	le := errors.New(errors.ConfigInvalidValue).WithDetail(field + ": " + detail)
	if c.configPath == "" {
		return le
	}
	key := field[strings.LastIndex(field, ".")+1:]
	if line := findKeyLine(c.configPath, key); line > 0 {
		le.WithLocation(c.configPath, line, 0)
	}
	return le
}

// findKeyLine returns the 1-based line of the first occurrence of "key" in
// the file, or 0.
func findKeyLine(path, key string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	needle := `"` + key + `"`
	for i, line := range strings.Split(string(data), "\n") {
		if strings.Contains(line, needle) {
			return i + 1
		}
	}
	return 0
}

// Exists checks if a deeplink.json exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot finds the nearest directory containing deeplink.json,
// starting at startDir and walking up.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New(errors.ConfigNotFound).
				WithSuggestion("Run 'deeplink config init' to write the defaults")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest deeplink.json from the working
// directory upward.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}

// Resolve produces the effective configuration: the file at path (or the
// nearest deeplink.json when path is empty, or the defaults when none
// exists), then environment overrides, then validation.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch {
	case path != "":
		cfg, err = LoadFile(path)
	default:
		cfg, err = LoadFromWorkingDir()
		var le *errors.LinkError
		if stderrors.As(err, &le) && le.Code == errors.ConfigNotFound {
			cfg, err = New(), nil
		}
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
