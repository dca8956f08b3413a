package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Load loads configuration from an optional JSON file and applies
// environment variable overrides on top, in that order, the same
// file-then-env precedence the teacher's own config loader used.
// Validation is deferred so callers can apply further overrides (e.g. CLI
// flags in cmd/pierrectl) before calling cfg.Validate().
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		fileConfig, err := loadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = fileConfig
	}

	applyEnvironmentOverrides(cfg)

	return cfg, nil
}

// LoadFromEnvironment builds a configuration from environment variables
// only, for container deployments where a mounted config file isn't
// available.
func LoadFromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	applyEnvironmentOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFormat, err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides layers the environment variables spec §6 names
// on top of cfg, file-loaded or default.
func applyEnvironmentOverrides(cfg *Config) {
	if v := os.Getenv("PIERRE_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("PIERRE_MCP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.MCPPort = port
		}
	}
	if v := os.Getenv("PIERRE_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.HTTPPort = port
		}
	}
	if v := os.Getenv("PIERRE_MAX_REQUEST_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Server.MaxRequestBodyBytes = n
		}
	}
	if v := os.Getenv("RUST_LOG"); v != "" {
		cfg.Server.LogFilter = v
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}

	if v := os.Getenv("PIERRE_MASTER_ENCRYPTION_KEY"); v != "" {
		cfg.Crypto.MasterKeyBase64 = v
	}

	if v := os.Getenv("PIERRE_SESSION_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.JWT.SessionTTLSeconds = n
		}
	}

	if v := os.Getenv("OAUTH2_REGISTER_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.OAuth2RegisterRPM = n
		}
	}
	if v := os.Getenv("OAUTH2_TOKEN_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.OAuth2TokenRPM = n
		}
	}
	if v := os.Getenv("OAUTH2_AUTHORIZE_RPM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.OAuth2AuthorizeRPM = n
		}
	}

	if v := os.Getenv("PIERRE_CACHE_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.MaxEntries = n
		}
	}
	if v := os.Getenv("PIERRE_CACHE_SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.SweepIntervalSeconds = n
		}
	}

	if v := os.Getenv("PIERRE_DISABLED_TOOLS"); v != "" {
		tools := strings.Split(v, ",")
		cfg.Tools.DisabledTools = cfg.Tools.DisabledTools[:0]
		for _, t := range tools {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Tools.DisabledTools = append(cfg.Tools.DisabledTools, t)
			}
		}
	}
}
