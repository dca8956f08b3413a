package store

import (
	"context"
)

// MasterKeySentinel adapts Store to cryptoutil.SentinelStore: a single
// row in system_bootstrap marks that a master key was generated for this
// deployment, so a later boot missing the env var can tell "first boot,
// generate one" apart from "key material was lost".
type MasterKeySentinel struct{ *Store }

func (m MasterKeySentinel) MasterKeySentinelExists(ctx context.Context) (bool, error) {
	var exists bool
	err := m.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM system_bootstrap WHERE key = 'master_encryption_key')`).Scan(&exists)
	if err != nil {
		return false, translateErr(err, "")
	}
	return exists, nil
}

func (m MasterKeySentinel) MarkMasterKeySentinel(ctx context.Context) error {
	const q = `INSERT INTO system_bootstrap (key, set_at) VALUES ('master_encryption_key', now()) ON CONFLICT (key) DO NOTHING`
	_, err := m.pool.Exec(ctx, q)
	return translateErr(err, "")
}
