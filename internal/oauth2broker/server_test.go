package oauth2broker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/store"
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

func mustTestUser(t *testing.T, st *store.Store) *store.User {
	t.Helper()
	u := &store.User{ID: uuid.New(), Email: "agent-owner@example.com", PasswordHash: "h", Tier: "Professional", Status: "Active", AuthProvider: "password"}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func userContext(u *store.User) context.Context {
	return auth.WithPrincipal(context.Background(), &auth.Principal{
		ID:     u.ID.String(),
		Kind:   auth.PrincipalUser,
		UserID: u.ID.String(),
		Tier:   u.Tier,
	})
}

func TestAuthorizationCodeGrantEndToEnd(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	u := mustTestUser(t, st)

	broker := NewServerBroker(st, time.Hour)
	srv := NewServer(Deps{Broker: broker, Store: st})

	client, err := broker.RegisterClient(ctx, RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback"},
		GrantTypes:   []string{"authorization_code"},
	}, u.ID)
	require.NoError(t, err)

	authReq := httptest.NewRequest(http.MethodGet, "/oauth2/authorize?client_id="+client.ClientID+
		"&redirect_uri=https://agent.example.com/callback&scope=read&code_challenge=abc&code_challenge_method=plain&state=xyz", nil)
	authReq = authReq.WithContext(userContext(u))
	authRec := httptest.NewRecorder()
	srv.handleAuthorize(authRec, authReq)
	require.Equal(t, http.StatusFound, authRec.Code)

	loc := authRec.Header().Get("Location")
	require.Contains(t, loc, "code=")
	require.Contains(t, loc, "state=xyz")
	code := strings.Split(strings.Split(loc, "code=")[1], "&")[0]

	form := strings.NewReader("grant_type=authorization_code&code=" + code +
		"&redirect_uri=https://agent.example.com/callback&code_verifier=abc&client_id=" + client.ClientID +
		"&client_secret=" + client.ClientSecret)
	tokReq := httptest.NewRequest(http.MethodPost, "/oauth2/token", form)
	tokReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokRec := httptest.NewRecorder()
	srv.handleToken(tokRec, tokReq)
	require.Equal(t, http.StatusOK, tokRec.Code)
	require.Contains(t, tokRec.Body.String(), `"access_token"`)
}

func TestHandleAuthorize_RejectsNonUserPrincipal(t *testing.T) {
	st := testStore(t)
	broker := NewServerBroker(st, time.Hour)
	srv := NewServer(Deps{Broker: broker, Store: st})

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorize", nil)
	rec := httptest.NewRecorder()
	srv.handleAuthorize(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClientCredentialsGrant(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	u := mustTestUser(t, st)

	broker := NewServerBroker(st, time.Hour)
	srv := NewServer(Deps{Broker: broker, Store: st})

	client, err := broker.RegisterClient(ctx, RegistrationRequest{
		RedirectURIs: []string{"https://agent.example.com/callback"},
		GrantTypes:   []string{"client_credentials"},
	}, u.ID)
	require.NoError(t, err)

	form := strings.NewReader("grant_type=client_credentials&client_id=" + client.ClientID + "&client_secret=" + client.ClientSecret + "&scope=read")
	tokReq := httptest.NewRequest(http.MethodPost, "/oauth2/token", form)
	tokReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	tokRec := httptest.NewRecorder()
	srv.handleToken(tokRec, tokReq)
	require.Equal(t, http.StatusOK, tokRec.Code)
}

func TestHandleToken_UnsupportedGrantType(t *testing.T) {
	st := testStore(t)
	broker := NewServerBroker(st, time.Hour)
	srv := NewServer(Deps{Broker: broker, Store: st})

	form := strings.NewReader("grant_type=password")
	req := httptest.NewRequest(http.MethodPost, "/oauth2/token", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.handleToken(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegister_RequiresUserPrincipal(t *testing.T) {
	st := testStore(t)
	broker := NewServerBroker(st, time.Hour)
	srv := NewServer(Deps{Broker: broker, Store: st})

	req := httptest.NewRequest(http.MethodPost, "/oauth2/register", strings.NewReader(`{"redirect_uris":["https://a.example.com/cb"]}`))
	rec := httptest.NewRecorder()
	srv.handleRegister(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
