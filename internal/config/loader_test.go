package config

import (
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"PIERRE_ENV", "PIERRE_MCP_PORT", "PIERRE_HTTP_PORT", "PIERRE_ADMIN_JWT_ISSUER",
	"PIERRE_MAX_REQUEST_BODY_BYTES", "RUST_LOG", "DATABASE_URL",
	"PIERRE_MASTER_ENCRYPTION_KEY", "PIERRE_SESSION_TTL_SECONDS",
	"OAUTH2_REGISTER_RPM", "OAUTH2_TOKEN_RPM", "OAUTH2_AUTHORIZE_RPM",
	"PIERRE_CACHE_MAX_ENTRIES", "PIERRE_CACHE_SWEEP_INTERVAL_SECONDS",
	"PIERRE_DISABLED_TOOLS",
}

func clearEnv() {
	for _, k := range envKeys {
		os.Unsetenv(k)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv()
	defer clearEnv()

	os.Setenv("DATABASE_URL", "postgres://localhost/pierre")
	os.Setenv("PIERRE_MASTER_ENCRYPTION_KEY", "dGVzdC1rZXktdGVzdC1rZXktdGVzdC1rZXkhISE=")
	os.Setenv("PIERRE_MCP_PORT", "9090")
	os.Setenv("PIERRE_DISABLED_TOOLS", "delete_workout, export_data")

	cfg, err := LoadFromEnvironment()
	if err != nil {
		t.Fatalf("LoadFromEnvironment() error = %v", err)
	}
	if cfg.Database.URL != "postgres://localhost/pierre" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}
	if cfg.Server.MCPPort != 9090 {
		t.Errorf("Server.MCPPort = %d, want 9090", cfg.Server.MCPPort)
	}
	if len(cfg.Tools.DisabledTools) != 2 || cfg.Tools.DisabledTools[0] != "delete_workout" {
		t.Errorf("Tools.DisabledTools = %v", cfg.Tools.DisabledTools)
	}
}

func TestLoad(t *testing.T) {
	clearEnv()
	defer clearEnv()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pierre.json")
	configJSON := `{
  "server": {"env": "staging", "httpPort": 8181},
  "database": {"url": "postgres://file/pierre"}
}`
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		t.Fatalf("failed to create test config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Env != "staging" {
		t.Errorf("Server.Env = %q, want staging", cfg.Server.Env)
	}
	if cfg.Database.URL != "postgres://file/pierre" {
		t.Errorf("Database.URL = %q", cfg.Database.URL)
	}

	os.Setenv("PIERRE_HTTP_PORT", "7000")
	cfgOverride, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfgOverride.Server.HTTPPort != 7000 {
		t.Errorf("env override failed: Server.HTTPPort = %d, want 7000", cfgOverride.Server.HTTPPort)
	}

	if _, err := Load("/nonexistent/config.json"); err == nil {
		t.Error("expected error for nonexistent config file")
	}
}

func TestConfigValidation(t *testing.T) {
	validKey := "dGVzdC1rZXktdGVzdC1rZXktdGVzdC1rZXktMTIzNDU="

	tests := []struct {
		name    string
		cfg     *Config
		wantErr error
	}{
		{
			name: "missing database url",
			cfg:  DefaultConfig(),
			wantErr: ErrMissingDatabaseURL,
		},
		{
			name: "missing master key",
			cfg: func() *Config {
				c := DefaultConfig()
				c.Database.URL = "postgres://localhost/pierre"
				return c
			}(),
			wantErr: ErrMissingMasterKey,
		},
		{
			name: "invalid master key length",
			cfg: func() *Config {
				c := DefaultConfig()
				c.Database.URL = "postgres://localhost/pierre"
				c.Crypto.MasterKeyBase64 = "dG9vc2hvcnQ="
				return c
			}(),
			wantErr: ErrInvalidMasterKey,
		},
		{
			name: "valid config",
			cfg: func() *Config {
				c := DefaultConfig()
				c.Database.URL = "postgres://localhost/pierre"
				c.Crypto.MasterKeyBase64 = validKey
				return c
			}(),
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("Validate() unexpected error = %v", err)
			}
			if tt.wantErr != nil && err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
