package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func mustCreateUser(t *testing.T, st *Store, email string) *User {
	t.Helper()
	u := &User{ID: uuid.New(), Email: email, PasswordHash: "h", Tier: "Starter", Status: "Active", AuthProvider: "password"}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func TestCreateAndGetTenant(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	owner := mustCreateUser(t, st, "owner@example.com")
	tenant := &Tenant{
		ID:          uuid.New(),
		Slug:        "acme-racing",
		DisplayName: "Acme Racing",
		Plan:        "Professional",
		OwnerUserID: owner.ID,
	}
	require.NoError(t, st.CreateTenant(ctx, tenant))
	require.False(t, tenant.CreatedAt.IsZero())

	bySlug, err := st.GetTenantBySlug(ctx, "acme-racing")
	require.NoError(t, err)
	require.Equal(t, tenant.ID, bySlug.ID)

	byID, err := st.GetTenantByID(ctx, tenant.ID)
	require.NoError(t, err)
	require.Equal(t, "Professional", byID.Plan)
}

func TestGetTenantBySlug_NotFound(t *testing.T) {
	st := testStore(t)
	_, err := st.GetTenantBySlug(context.Background(), "does-not-exist")
	require.Error(t, err)
}
