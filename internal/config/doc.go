// Package config manages configuration for the PopItGo client.
//
// Configuration is loaded from environment variables and validated once at
// startup. A missing backend endpoint or API key is reported by Validate as
// an error wrapping ErrConfiguration, before any network call is attempted.
//
// # Configuration Groups
//
//   - BackendConfig: endpoint URL, API key, transport driver, request timeout
//   - AuthConfig: OAuth redirect origin and callback path
//   - SessionConfig: where the session token survives restarts
//   - LogConfig: slog level and handler format
//
// # Environment Variables
//
//	POPITGO_BACKEND_URL     - hosted backend endpoint (required)
//	POPITGO_BACKEND_KEY     - backend API key (required)
//	POPITGO_BACKEND_DRIVER  - rest (default) or surreal
//	POPITGO_SESSION_STORE   - file (default), redis, or memory
//	POPITGO_REDIRECT_ORIGIN - origin used to build the /auth/callback URL
//
// # Usage
//
//	cfg, _ := config.Load()
//	if err := cfg.Validate(); err != nil {
//	    // errors.Is(err, config.ErrConfiguration) == true
//	}
package config
