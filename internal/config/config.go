package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load.
// Nested keys use underscores: auth.admin_grant_policy -> HRAPI_AUTH_ADMIN_GRANT_POLICY.
const EnvPrefix = "HRAPI"

// AdminGrantPolicy decides what happens to a principal's role when a session
// is established or restored.
type AdminGrantPolicy string

const (
	// AdminGrantBootstrap grants admin only to configured bootstrap emails and
	// otherwise ensures the baseline "user" role exists.
	AdminGrantBootstrap AdminGrantPolicy = "bootstrap"
	// AdminGrantAuto grants admin to every principal that signs in.
	AdminGrantAuto AdminGrantPolicy = "auto"
)

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN)
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL of the console API
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	// Upper bound applied to every data-store call made on behalf of a request
	RemoteCallTimeout time.Duration

	// Cron expression for the expired-session purge job; empty disables it
	SessionPurgeSchedule string

	// Origins allowed by the CORS policy
	CORSAllowedOrigins []string

	Auth          AuthConfig
	Directory     DirectoryConfig
	Resolver      ResolverConfig
	Observability ObservabilityConfig
}

// AuthConfig controls sign-in, sessions and admin bootstrap.
type AuthConfig struct {
	SessionDuration time.Duration

	// AdminGrantPolicy is applied on every Unauthenticated -> Authenticated transition.
	AdminGrantPolicy AdminGrantPolicy

	// BootstrapAdminEmails receive admin on sign-in and via `iam bootstrap`.
	// Stored lower-cased.
	BootstrapAdminEmails []string

	// SetupTokenSecret signs one-time admin setup tokens. Empty disables them.
	SetupTokenSecret string

	// Per-client login rate limit
	LoginRatePerSecond float64
	LoginBurst         int
}

// IsBootstrapAdmin reports whether email is on the bootstrap list.
func (a AuthConfig) IsBootstrapAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, e := range a.BootstrapAdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

// DirectoryConfig controls server-side enumeration of principals.
type DirectoryConfig struct {
	// Enumeration turns the privileged "list all principals" capability on or off.
	Enumeration bool
	PageSize    int
}

// ResolverConfig sizes the session resolver.
type ResolverConfig struct {
	MaxSessions int
}

// ObservabilityConfig holds OpenTelemetry exporter settings.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPProtocol   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "file:hrapi.db?cache=shared")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("remote_call_timeout", 5*time.Second)
	v.SetDefault("session_purge_schedule", "@every 1h")
	v.SetDefault("cors_allowed_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("auth.session_duration", 12*time.Hour)
	v.SetDefault("auth.admin_grant_policy", string(AdminGrantBootstrap))
	v.SetDefault("auth.bootstrap_admin_emails", []string{})
	v.SetDefault("auth.setup_token_secret", "")
	v.SetDefault("auth.login_rate_per_second", 1.0)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("directory.enumeration", true)
	v.SetDefault("directory.page_size", 100)

	v.SetDefault("resolver.max_sessions", 10000)

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http/protobuf")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.service_name", "hrapi")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
}

// Load reads configuration from the global viper instance: defaults, then the
// config file (if one was read by the caller), then HRAPI_* environment
// variables, then bound command-line flags.
func Load() (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:          v.GetString("database_url"),
		ServerAddr:           v.GetString("server_addr"),
		ServerURL:            v.GetString("server_url"),
		MaxDBConnections:     v.GetInt("max_db_connections"),
		Debug:                v.GetBool("debug"),
		RemoteCallTimeout:    v.GetDuration("remote_call_timeout"),
		SessionPurgeSchedule: v.GetString("session_purge_schedule"),
		CORSAllowedOrigins:   splitList(v.GetStringSlice("cors_allowed_origins")),
		Auth: AuthConfig{
			SessionDuration:      v.GetDuration("auth.session_duration"),
			AdminGrantPolicy:     AdminGrantPolicy(strings.ToLower(v.GetString("auth.admin_grant_policy"))),
			BootstrapAdminEmails: lowerAll(splitList(v.GetStringSlice("auth.bootstrap_admin_emails"))),
			SetupTokenSecret:     v.GetString("auth.setup_token_secret"),
			LoginRatePerSecond:   v.GetFloat64("auth.login_rate_per_second"),
			LoginBurst:           v.GetInt("auth.login_burst"),
		},
		Directory: DirectoryConfig{
			Enumeration: v.GetBool("directory.enumeration"),
			PageSize:    v.GetInt("directory.page_size"),
		},
		Resolver: ResolverConfig{
			MaxSessions: v.GetInt("resolver.max_sessions"),
		},
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
			OTLPProtocol:   v.GetString("observability.otlp_protocol"),
			OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
			ServiceName:    v.GetString("observability.service_name"),
			ServiceVersion: v.GetString("observability.service_version"),
			Environment:    v.GetString("observability.environment"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and enumerations.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%s_DATABASE_URL is required", EnvPrefix)
	}
	if c.ServerURL == "" {
		return fmt.Errorf("%s_SERVER_URL is required", EnvPrefix)
	}
	if c.RemoteCallTimeout <= 0 {
		return fmt.Errorf("%s_REMOTE_CALL_TIMEOUT must be positive, got %s", EnvPrefix, c.RemoteCallTimeout)
	}
	switch c.Auth.AdminGrantPolicy {
	case AdminGrantBootstrap, AdminGrantAuto:
	default:
		return fmt.Errorf("%s_AUTH_ADMIN_GRANT_POLICY must be %q or %q, got %q",
			EnvPrefix, AdminGrantBootstrap, AdminGrantAuto, c.Auth.AdminGrantPolicy)
	}
	if c.Auth.SessionDuration <= 0 {
		return fmt.Errorf("%s_AUTH_SESSION_DURATION must be positive", EnvPrefix)
	}
	if c.Directory.PageSize <= 0 {
		return fmt.Errorf("%s_DIRECTORY_PAGE_SIZE must be positive", EnvPrefix)
	}
	if c.Resolver.MaxSessions <= 0 {
		return fmt.Errorf("%s_RESOLVER_MAX_SESSIONS must be positive", EnvPrefix)
	}
	return nil
}

// splitList flattens comma-separated entries, so HRAPI_FOO="a,b" and a YAML
// list both end up as ["a", "b"].
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = strings.ToLower(in[i])
	}
	return in
}
