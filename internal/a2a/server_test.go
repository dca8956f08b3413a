package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/mcp/tools"
	"github.com/pierre-fitness/pierre-core/internal/oauth2broker"
	"github.com/pierre-fitness/pierre-core/internal/ratelimit"
	"github.com/pierre-fitness/pierre-core/internal/store"
	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
)

// testStore opens a real Postgres pool against TEST_DATABASE_URL and skips
// the test when it isn't set, the same gate the teacher uses in
// internal/httpapi/sync_notes_test.go and internal/grpcapi/server_test.go.
func testStore(t *testing.T) *store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	ctx := context.Background()
	pool, err := store.Open(ctx, dbURL)
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

	return store.New(pool)
}

type fakeTenantLookup struct{ plan toolcatalog.Plan }

func (f fakeTenantLookup) GetTenantPlan(ctx context.Context, tenantID string) (toolcatalog.Plan, error) {
	return f.plan, nil
}

type fakeOverrideStore struct{}

func (fakeOverrideStore) GetOverrides(ctx context.Context, tenantID string) (map[string]bool, error) {
	return nil, nil
}
func (fakeOverrideStore) SetOverride(ctx context.Context, tenantID, toolName string, isEnabled bool, adminID, reason string) error {
	return nil
}
func (fakeOverrideStore) RemoveOverride(ctx context.Context, tenantID, toolName string) error {
	return nil
}

// setupClient registers a client_credentials-capable OAuth2 client owned by
// a freshly created user who owns a tenant (the tenant id is set on the
// returned User only; the stored user row has none), and returns the deps a
// test needs.
func setupClient(t *testing.T, st *store.Store) (Deps, *store.OAuth2Client, *store.User) {
	t.Helper()
	ctx := context.Background()

	owner := &store.User{ID: uuid.New(), Email: "a2a-owner@example.com", PasswordHash: "h", Tier: "Professional", Status: "Active", AuthProvider: "password"}
	require.NoError(t, st.CreateUser(ctx, owner))
	tenant := &store.Tenant{ID: uuid.New(), Slug: "a2a-tenant", DisplayName: "A2A Tenant", Plan: "Professional", OwnerUserID: owner.ID}
	require.NoError(t, st.CreateTenant(ctx, tenant))
	owner.TenantID = &tenant.ID
	require.NoError(t, st.ApproveUser(ctx, owner.ID, owner.ID))

	broker := oauth2broker.NewServerBroker(st, time.Hour)
	client, err := broker.RegisterClient(ctx, oauth2broker.RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback"},
		GrantTypes:   []string{"client_credentials"},
	}, owner.ID)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	registry.MustRegister(tools.ToolDefinition{
		Name:        "noop_task",
		Description: "test-only task handler",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, tc *tools.ToolContext, raw json.RawMessage) (interface{}, error) {
		return map[string]any{"ok": true}, nil
	})
	catalog := toolcatalog.NewCatalog([]toolcatalog.Entry{{ToolName: "noop_task", MinPlan: toolcatalog.PlanStarter}})
	selector := toolcatalog.NewSelector(catalog, fakeTenantLookup{plan: toolcatalog.PlanEnterprise}, fakeOverrideStore{}, nil)
	limiter := ratelimit.NewLimiter(ratelimit.Config{WindowSeconds: 60, MaxRequests: 1000, Burst: 1000})
	t.Cleanup(limiter.Close)

	return Deps{
		Store:               st,
		Broker:              broker,
		Registry:            registry,
		Selector:            selector,
		Limiter:             limiter,
		MaxRequestBodyBytes: 1 << 20,
	}, client, owner
}

func TestHandleAuth_ClientCredentials(t *testing.T) {
	st := testStore(t)
	deps, client, _ := setupClient(t, st)
	srv := NewServer(deps)

	body := `{"client_id":"` + client.ClientID + `","client_secret":"` + client.ClientSecret + `"}`
	req := httptest.NewRequest(http.MethodPost, "/a2a/auth", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleAuth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["access_token"])
}

func TestHandleAuth_InvalidCredentialsRejected(t *testing.T) {
	st := testStore(t)
	deps, _, _ := setupClient(t, st)
	srv := NewServer(deps)

	req := httptest.NewRequest(http.MethodPost, "/a2a/auth", strings.NewReader(`{"client_id":"nope","client_secret":"nope"}`))
	rec := httptest.NewRecorder()
	srv.handleAuth(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func bearerRequest(method, path, body, token string) *http.Request {
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	r.Header.Set("Authorization", "Bearer "+token)
	r.Header.Set("Content-Type", "application/json")
	return r
}

func mustAccessToken(t *testing.T, srv *Server, client *store.OAuth2Client) string {
	t.Helper()
	body := `{"client_id":"` + client.ClientID + `","client_secret":"` + client.ClientSecret + `"}`
	req := httptest.NewRequest(http.MethodPost, "/a2a/auth", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.handleAuth(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp["access_token"].(string)
}

func TestResolveA2APrincipal_UnauthenticatedWithoutBearer(t *testing.T) {
	st := testStore(t)
	req := httptest.NewRequest(http.MethodPost, "/a2a/execute", nil)
	_, err := ResolveA2APrincipal(context.Background(), st, req)
	require.Error(t, err)
}

func TestHandleExecute_TaskLifecycle(t *testing.T) {
	st := testStore(t)
	deps, client, _ := setupClient(t, st)
	srv := NewServer(deps)
	token := mustAccessToken(t, srv, client)

	createBody := `{"jsonrpc":"2.0","id":1,"method":"tasks/create","params":{"task_type":"noop_task","input":{}}}`
	rec := httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", createBody, token))
	require.Equal(t, http.StatusOK, rec.Code)

	var created struct {
		Result struct {
			ID string `json:"id"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Result.ID)

	getBody := `{"jsonrpc":"2.0","id":2,"method":"tasks/get","params":{"task_id":"` + created.Result.ID + `"}}`
	rec = httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", getBody, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Pending"`)

	listBody := `{"jsonrpc":"2.0","id":3,"method":"tasks/list","params":{}}`
	rec = httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", listBody, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), created.Result.ID)

	cancelBody := `{"jsonrpc":"2.0","id":4,"method":"tasks/cancel","params":{"task_id":"` + created.Result.ID + `"}}`
	rec = httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", cancelBody, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"Cancelled"`)
}

func TestHandleExecute_ToolCall(t *testing.T) {
	st := testStore(t)
	deps, client, _ := setupClient(t, st)
	srv := NewServer(deps)
	token := mustAccessToken(t, srv, client)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"noop_task","arguments":{}}}`
	rec := httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", body, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `\"ok\":true`)
}

func TestHandleExecute_UnknownMethod(t *testing.T) {
	st := testStore(t)
	deps, client, _ := setupClient(t, st)
	srv := NewServer(deps)
	token := mustAccessToken(t, srv, client)

	body := `{"jsonrpc":"2.0","id":1,"method":"bogus/method","params":{}}`
	rec := httptest.NewRecorder()
	srv.handleExecute(rec, bearerRequest(http.MethodPost, "/a2a/execute", body, token))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "method not found")
}
