package store

import (
	"context"
	"os"
	"testing"
)

// testStore opens a real Postgres pool against TEST_DATABASE_URL and skips
// the test when it isn't set, the same integration-test gate the teacher
// uses in internal/httpapi/sync_notes_test.go and internal/grpcapi/server_test.go.
// Migrations from migrations/0001_init.sql must already be applied to that
// database; this helper only truncates between tests, it does not migrate.
func testStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	ctx := context.Background()
	pool, err := Open(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	const truncate = `TRUNCATE TABLE
		usage_records, tenant_tool_overrides, tasks, admin_tokens, api_keys,
		sessions, authorization_grants, oauth2_clients, encrypted_tokens,
		tenant_oauth_credentials, audit_log, users, tenants, system_bootstrap
		RESTART IDENTITY CASCADE`
	if _, err := pool.Exec(ctx, truncate); err != nil {
		t.Fatalf("failed to truncate test database: %v", err)
	}

	return New(pool)
}
