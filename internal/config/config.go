package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrConfiguration marks a missing or malformed setting. It is fatal at startup.
var ErrConfiguration = errors.New("configuration error")

// Config holds all client configuration
type Config struct {
	Backend BackendConfig
	Auth    AuthConfig
	Session SessionConfig
	Log     LogConfig
}

// BackendConfig holds hosted backend settings
type BackendConfig struct {
	URL     string
	Key     string
	Driver  string // rest, surreal
	Timeout time.Duration
	// SurrealDB driver only
	Namespace string
	Database  string
	User      string
	Password  string
	// AuthURL serves the auth endpoints when data goes through SurrealDB.
	// Empty means URL.
	AuthURL string
}

// AuthEndpoint returns the base URL for the auth API
func (b BackendConfig) AuthEndpoint() string {
	if b.AuthURL != "" {
		return b.AuthURL
	}
	return b.URL
}

// AuthConfig holds OAuth sign-in settings
type AuthConfig struct {
	RedirectOrigin  string
	CallbackPath    string
	DefaultProvider string
	ProfileTable    string
}

// SessionConfig holds session persistence settings
type SessionConfig struct {
	Store         string // file, redis, memory
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

// Driver names
const (
	DriverREST    = "rest"
	DriverSurreal = "surreal"
)

// Session store names
const (
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
	SessionStoreMemory = "memory"
)

// Load reads configuration from environment variables with sensible defaults.
// Required settings are not defaulted; call Validate before use.
func Load() (*Config, error) {
	return &Config{
		Backend: BackendConfig{
			URL:       strings.TrimRight(getEnv("POPITGO_BACKEND_URL", ""), "/"),
			Key:       getEnv("POPITGO_BACKEND_KEY", ""),
			Driver:    getEnv("POPITGO_BACKEND_DRIVER", DriverREST),
			Timeout:   getDurationEnv("POPITGO_BACKEND_TIMEOUT", 30*time.Second),
			Namespace: getEnv("POPITGO_SURREAL_NAMESPACE", "popitgo"),
			Database:  getEnv("POPITGO_SURREAL_DATABASE", "main"),
			User:      getEnv("POPITGO_SURREAL_USER", ""),
			Password:  getEnv("POPITGO_SURREAL_PASSWORD", ""),
			AuthURL:   strings.TrimRight(getEnv("POPITGO_AUTH_URL", ""), "/"),
		},
		Auth: AuthConfig{
			RedirectOrigin:  strings.TrimRight(getEnv("POPITGO_REDIRECT_ORIGIN", "http://localhost:5173"), "/"),
			CallbackPath:    getEnv("POPITGO_CALLBACK_PATH", "/auth/callback"),
			DefaultProvider: getEnv("POPITGO_AUTH_PROVIDER", "kakao"),
			ProfileTable:    getEnv("POPITGO_PROFILE_TABLE", "resv_profiles"),
		},
		Session: SessionConfig{
			Store:         getEnv("POPITGO_SESSION_STORE", SessionStoreFile),
			Path:          getEnv("POPITGO_SESSION_PATH", defaultSessionPath()),
			RedisAddr:     getEnv("POPITGO_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("POPITGO_REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("POPITGO_REDIS_DB", 0),
			RedisKey:      getEnv("POPITGO_REDIS_KEY", "popitgo:session"),
		},
		Log: LogConfig{
			Level:  getEnv("POPITGO_LOG_LEVEL", "info"),
			Format: getEnv("POPITGO_LOG_FORMAT", "text"),
		},
	}, nil
}

// CallbackURL returns the absolute OAuth redirect target
func (c *Config) CallbackURL() string {
	return c.Auth.RedirectOrigin + c.Auth.CallbackPath
}

// Validate checks that all required configuration values are present and valid.
// The returned error wraps ErrConfiguration and lists every failure.
func (c *Config) Validate() error {
	var errs []error

	// Backend validation
	if c.Backend.URL == "" {
		errs = append(errs, errors.New("POPITGO_BACKEND_URL is required"))
	} else if err := validateEndpoint(c.Backend.URL, c.Backend.Driver); err != nil {
		errs = append(errs, fmt.Errorf("POPITGO_BACKEND_URL: %w", err))
	}
	if c.Backend.Key == "" {
		errs = append(errs, errors.New("POPITGO_BACKEND_KEY is required"))
	}
	if c.Backend.Driver != DriverREST && c.Backend.Driver != DriverSurreal {
		errs = append(errs, fmt.Errorf("POPITGO_BACKEND_DRIVER must be 'rest' or 'surreal', got '%s'", c.Backend.Driver))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("POPITGO_BACKEND_TIMEOUT must be positive"))
	}
	if c.Backend.Driver == DriverSurreal {
		if c.Backend.Namespace == "" {
			errs = append(errs, errors.New("POPITGO_SURREAL_NAMESPACE is required for the surreal driver"))
		}
		if c.Backend.Database == "" {
			errs = append(errs, errors.New("POPITGO_SURREAL_DATABASE is required for the surreal driver"))
		}
		if c.Backend.AuthURL == "" {
			errs = append(errs, errors.New("POPITGO_AUTH_URL is required for the surreal driver"))
		}
	}
	if c.Backend.AuthURL != "" {
		if err := validateEndpoint(c.Backend.AuthURL, DriverREST); err != nil {
			errs = append(errs, fmt.Errorf("POPITGO_AUTH_URL: %w", err))
		}
	}

	// Auth validation
	if _, err := url.ParseRequestURI(c.Auth.RedirectOrigin); err != nil {
		errs = append(errs, fmt.Errorf("POPITGO_REDIRECT_ORIGIN is not a valid URL: %w", err))
	}
	if !strings.HasPrefix(c.Auth.CallbackPath, "/") {
		errs = append(errs, errors.New("POPITGO_CALLBACK_PATH must start with '/'"))
	}

	// Session validation
	switch c.Session.Store {
	case SessionStoreFile:
		if c.Session.Path == "" {
			errs = append(errs, errors.New("POPITGO_SESSION_PATH is required when POPITGO_SESSION_STORE is 'file'"))
		}
	case SessionStoreRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("POPITGO_REDIS_ADDR is required when POPITGO_SESSION_STORE is 'redis'"))
		}
	case SessionStoreMemory:
	default:
		errs = append(errs, fmt.Errorf("POPITGO_SESSION_STORE must be 'file', 'redis', or 'memory', got '%s'", c.Session.Store))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func validateEndpoint(raw, driver string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	switch u.Scheme {
	case "http", "https":
		return nil
	case "ws", "wss":
		if driver == DriverSurreal {
			return nil
		}
	}
	return fmt.Errorf("unsupported scheme '%s'", u.Scheme)
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".popitgo-session"
	}
	return dir + string(os.PathSeparator) + "popitgo" + string(os.PathSeparator) + "session"
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
