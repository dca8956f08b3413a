package cryptoutil

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

// ErrBootstrapInconsistent is returned when the sentinel row says the
// master key was already initialized but no key was supplied at startup
// — a deployment that lost its key material. Refusing to start is the
// only safe response: silently minting a new key would orphan every
// ciphertext already written with the old one.
var ErrBootstrapInconsistent = errors.New("cryptoutil: master key sentinel exists but PIERRE_MASTER_ENCRYPTION_KEY is not set")

// SentinelStore persists the one-time "master key bootstrap happened"
// marker. The real implementation lives in internal/store so this
// package stays free of a database dependency.
type SentinelStore interface {
	// MasterKeySentinelExists reports whether bootstrap has already run
	// for this deployment.
	MasterKeySentinelExists(ctx context.Context) (bool, error)
	// MarkMasterKeySentinel records that bootstrap has completed.
	MarkMasterKeySentinel(ctx context.Context) error
}

// LoadMasterKey implements the bootstrap contract from spec §4.1: load
// the key from the environment if present; otherwise, only on a brand
// new deployment (no sentinel row yet), generate one and persist the
// sentinel. A deployment with a sentinel but no key refuses to start.
func LoadMasterKey(ctx context.Context, envValue string, sentinels SentinelStore) ([]byte, error) {
	if envValue != "" {
		key, err := base64.StdEncoding.DecodeString(envValue)
		if err != nil {
			return nil, fmt.Errorf("cryptoutil: PIERRE_MASTER_ENCRYPTION_KEY is not valid base64: %w", err)
		}
		if len(key) != KeySize {
			return nil, fmt.Errorf("cryptoutil: PIERRE_MASTER_ENCRYPTION_KEY must decode to %d bytes, got %d", KeySize, len(key))
		}
		return key, nil
	}

	exists, err := sentinels.MasterKeySentinelExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("cryptoutil: check bootstrap sentinel: %w", err)
	}
	if exists {
		return nil, ErrBootstrapInconsistent
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("cryptoutil: generate master key: %w", err)
	}
	if err := sentinels.MarkMasterKeySentinel(ctx); err != nil {
		return nil, fmt.Errorf("cryptoutil: persist bootstrap sentinel: %w", err)
	}
	return key, nil
}
