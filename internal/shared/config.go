package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Backend     BackendConfig     `toml:"backend"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Firebase FirebaseConfig `toml:"firebase"`
	Google   GoogleConfig   `toml:"google"`
	TMDB     TMDBConfig     `toml:"tmdb"`
}

// FirebaseConfig contains the identity provider's web API key and endpoints.
type FirebaseConfig struct {
	APIKey   string `toml:"api_key"`
	AuthURL  string `toml:"auth_url"`
	TokenURL string `toml:"token_url"`
}

// GoogleConfig contains OAuth2 client credentials used for "Sign in with Google".
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// CallbackAddr returns the host:port the local OAuth callback server listens on, derived from the redirect URI.
func (g GoogleConfig) CallbackAddr() (string, error) {
	u, err := url.Parse(g.RedirectURI)
	if err != nil {
		return "", fmt.Errorf("%w: redirect_uri: %v", ErrInvalidConfig, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: redirect_uri has no host", ErrInvalidConfig)
	}
	return u.Host, nil
}

// CallbackPath returns the path component of the redirect URI.
func (g GoogleConfig) CallbackPath() string {
	u, err := url.Parse(g.RedirectURI)
	if err != nil || u.Path == "" {
		return "/callback"
	}
	return u.Path
}

// TMDBConfig contains movie catalog credentials.
type TMDBConfig struct {
	APIKey       string  `toml:"api_key"`
	BaseURL      string  `toml:"base_url"`
	ImageBaseURL string  `toml:"image_base_url"`
	RateLimit    float64 `toml:"rate_limit"`
}

// BackendConfig points at the remote watchlist and chat service.
type BackendConfig struct {
	BaseURL               string `toml:"base_url"`
	TimeoutSeconds        int    `toml:"timeout_seconds"`
	BreakerFailures       uint32 `toml:"breaker_failures"`
	BreakerTimeoutSeconds int    `toml:"breaker_timeout_seconds"`
}

// Timeout returns the per-request timeout for backend calls.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// BreakerTimeout returns how long the circuit breaker stays open.
func (b BackendConfig) BreakerTimeout() time.Duration {
	if b.BreakerTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(b.BreakerTimeoutSeconds) * time.Second
}

// SessionConfig contains the location of persisted sign-in credentials.
type SessionConfig struct {
	Path string `toml:"path"`
}

// ResolvedPath returns the session file path with "~" expanded, defaulting to ~/.movli/session.json.
func (s SessionConfig) ResolvedPath() (string, error) {
	if s.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".movli", "session.json"), nil
	}
	return ExpandHome(s.Path)
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the self-hosted watchlist service.
type ServerConfig struct {
	Host                   string   `toml:"host"`
	Port                   int      `toml:"port"`
	JWTSecret              string   `toml:"jwt_secret"`
	CORSOrigins            []string `toml:"cors_origins"`
	RateLimitRequests      int      `toml:"rate_limit_requests"`
	RateLimitWindowSeconds int      `toml:"rate_limit_window_seconds"`
	ImageBaseURL           string   `toml:"image_base_url"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitWindow returns the rate limit window as a duration.
func (s ServerConfig) RateLimitWindow() time.Duration {
	if s.RateLimitWindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.RateLimitWindowSeconds) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports missing values the client cannot run without.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("%w: backend.base_url is required", ErrInvalidConfig)
	}
	if c.Credentials.TMDB.BaseURL == "" {
		return fmt.Errorf("%w: credentials.tmdb.base_url is required", ErrInvalidConfig)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	return nil
}
