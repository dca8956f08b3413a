package config

import "errors"

// Sentinel errors returned by Load/Validate, distinguishable with errors.Is;
// cmd/pierred logs the returned error and exits, so a misconfigured
// deployment fails fast with a specific, loggable reason.
var (
	ErrMissingDatabaseURL  = errors.New("config: DATABASE_URL is required")
	ErrMissingMasterKey    = errors.New("config: PIERRE_MASTER_ENCRYPTION_KEY is required")
	ErrInvalidMasterKey    = errors.New("config: PIERRE_MASTER_ENCRYPTION_KEY must decode to 32 bytes")
	ErrInvalidMCPPort      = errors.New("config: PIERRE_MCP_PORT must be between 1 and 65535")
	ErrInvalidHTTPPort     = errors.New("config: PIERRE_HTTP_PORT must be between 1 and 65535")
	ErrConfigFileNotFound  = errors.New("config: configuration file not found")
	ErrInvalidConfigFormat = errors.New("config: invalid configuration file format")
)
