// Package config loads pierred's configuration: an optional JSON file layered
// under environment variables, in the teacher's own config+env-override
// loader shape (internal/mcpserver/config), generalized from Auth0/workspace
// settings to the Config sections this core's components actually need.
package config

import (
	"encoding/base64"
	"time"
)

// Config holds every setting C1-C10 need to construct their collaborators.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Crypto    CryptoConfig    `json:"crypto"`
	JWT       JWTConfig       `json:"jwt"`
	RateLimit RateLimitConfig `json:"rateLimit"`
	Cache     CacheConfig     `json:"cache"`
	Tools     ToolsConfig     `json:"tools"`
}

// ServerConfig controls process-level behavior: which environment this is
// (gates HSTS and the zerolog console-vs-JSON writer), the two listen
// ports spec §6 names (`PIERRE_MCP_PORT`/`PIERRE_HTTP_PORT`) and the
// request body ceiling shared by MCP and A2A's JSON-RPC decoders. The
// MCP/A2A/OAuth2/Admin surface is one HTTP server in this core (spec
// §4.10's single dispatch layer), so only HTTPPort is actually bound
// today; MCPPort is still validated and carried so a deployment that
// splits MCP onto its own listener later is a wiring change, not a
// config-shape change.
type ServerConfig struct {
	Env                 string `json:"env"`
	MCPPort             int    `json:"mcpPort"`
	HTTPPort            int    `json:"httpPort"`
	MaxRequestBodyBytes int64  `json:"maxRequestBodyBytes"`

	// LogFilter follows RUST_LOG's directive syntax inherited from this
	// core's predecessor: either a bare level ("info", "debug") or a
	// comma-separated list of target=level directives ("warn,pierre_core/oauth2broker=debug").
	// zerolog has no native directive parser, so Load only ever consumes
	// the bare-level form; per-target directives are accepted but ignored
	// until a target-aware logger is worth the complexity.
	LogFilter string `json:"logFilter"`
}

func (s ServerConfig) IsProduction() bool { return s.Env == "production" || s.Env == "prod" }

// DatabaseConfig is the Postgres connection string consumed by pgxpool.
type DatabaseConfig struct {
	URL string `json:"url"`
}

// CryptoConfig carries the base64-encoded 32-byte AEAD master key
// (`PIERRE_MASTER_ENCRYPTION_KEY`) used to encrypt upstream provider
// tokens and tenant OAuth credentials at rest (spec §4.1/§4.4).
type CryptoConfig struct {
	MasterKeyBase64 string `json:"masterKeyBase64"`
}

// JWTConfig controls the Auth Manager's own signing-key lifecycle and
// session lifetime (spec §4.3/§4.4).
type JWTConfig struct {
	KeyRetention      time.Duration `json:"-"`
	SessionTTLSeconds int           `json:"sessionTtlSeconds"`
}

// RateLimitConfig holds the OAuth2 per-IP sliding-window overrides spec §6
// names (`OAUTH2_REGISTER_RPM`, `OAUTH2_TOKEN_RPM`, `OAUTH2_AUTHORIZE_RPM`).
// A zero value disables limiting on that route.
type RateLimitConfig struct {
	OAuth2RegisterRPM  int `json:"oauth2RegisterRpm"`
	OAuth2TokenRPM     int `json:"oauth2TokenRpm"`
	OAuth2AuthorizeRPM int `json:"oauth2AuthorizeRpm"`
}

// CacheConfig sizes C5's in-memory cache (spec §4.5).
type CacheConfig struct {
	MaxEntries           int `json:"maxEntries"`
	SweepIntervalSeconds int `json:"sweepIntervalSeconds"`
}

// ToolsConfig carries the deployment-wide disabled-tool set
// (`PIERRE_DISABLED_TOOLS`, spec §4.6).
type ToolsConfig struct {
	DisabledTools []string `json:"disabledTools"`
}

// DefaultConfig returns the configuration a bare `pierred` boots with
// before any file or environment override is applied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Env:                 "dev",
			MCPPort:             8080,
			HTTPPort:            8080,
			MaxRequestBodyBytes: 1 << 20,
			LogFilter:           "info",
		},
		JWT: JWTConfig{
			KeyRetention:      7 * 24 * time.Hour,
			SessionTTLSeconds: 3600,
		},
		RateLimit: RateLimitConfig{
			OAuth2RegisterRPM:  0,
			OAuth2TokenRPM:     0,
			OAuth2AuthorizeRPM: 0,
		},
		Cache: CacheConfig{
			MaxEntries:           10_000,
			SweepIntervalSeconds: 60,
		},
	}
}

// Validate checks the configuration is complete enough to boot against a
// real deployment. File/env defaults alone are not sufficient — a master
// key and a database URL are always required.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Crypto.MasterKeyBase64 == "" {
		return ErrMissingMasterKey
	}
	if _, err := c.DecodeMasterKey(); err != nil {
		return err
	}
	if c.Server.MCPPort <= 0 || c.Server.MCPPort > 65535 {
		return ErrInvalidMCPPort
	}
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return ErrInvalidHTTPPort
	}
	return nil
}

// DecodeMasterKey base64-decodes the configured crypto key and checks it
// is exactly 32 bytes, the size cryptoutil.NewAEAD requires for AES-256-GCM.
func (c *Config) DecodeMasterKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.Crypto.MasterKeyBase64)
	if err != nil || len(key) != 32 {
		return nil, ErrInvalidMasterKey
	}
	return key, nil
}

// SessionTTL returns the Auth Manager session lifetime as a Duration.
func (c *Config) SessionTTL() time.Duration {
	if c.JWT.SessionTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.SessionTTLSeconds) * time.Second
}

// CacheSweepInterval returns the cache sweeper cadence as a Duration.
func (c *Config) CacheSweepInterval() time.Duration {
	if c.Cache.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Cache.SweepIntervalSeconds) * time.Second
}
