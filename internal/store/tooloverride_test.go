package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTenantToolOverrides(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	owner := mustCreateUser(t, st, "tool-owner@example.com")
	tenant := &Tenant{ID: uuid.New(), Slug: "tool-tenant", DisplayName: "Tool Tenant", Plan: "Professional", OwnerUserID: owner.ID}
	require.NoError(t, st.CreateTenant(ctx, tenant))
	admin := mustCreateUser(t, st, "tool-admin@example.com")

	reason := "customer requested disable"
	require.NoError(t, st.SetTenantToolOverride(ctx, TenantToolOverride{
		TenantID:   tenant.ID,
		ToolName:   "get_activities",
		IsEnabled:  false,
		SetByAdmin: admin.ID,
		Reason:     &reason,
	}))

	overrides, err := st.GetTenantToolOverrides(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.Equal(t, "get_activities", overrides[0].ToolName)
	require.False(t, overrides[0].IsEnabled)

	// Upsert flips the same (tenant, tool) row rather than inserting a second one.
	require.NoError(t, st.SetTenantToolOverride(ctx, TenantToolOverride{
		TenantID:   tenant.ID,
		ToolName:   "get_activities",
		IsEnabled:  true,
		SetByAdmin: admin.ID,
	}))
	overrides, err = st.GetTenantToolOverrides(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	require.True(t, overrides[0].IsEnabled)
}
