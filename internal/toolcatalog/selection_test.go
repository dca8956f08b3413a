package toolcatalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

var errTenantNotFound = pierreerr.New(pierreerr.KindNotFound, "tenant not found")

type fakeTenants struct {
	plans map[string]Plan
}

func (f *fakeTenants) GetTenantPlan(ctx context.Context, tenantID string) (Plan, error) {
	p, ok := f.plans[tenantID]
	if !ok {
		return "", errTenantNotFound
	}
	return p, nil
}

type fakeOverrides struct {
	overrides map[string]map[string]bool
}

func (f *fakeOverrides) GetOverrides(ctx context.Context, tenantID string) (map[string]bool, error) {
	return f.overrides[tenantID], nil
}

func (f *fakeOverrides) SetOverride(ctx context.Context, tenantID, toolName string, isEnabled bool, adminID, reason string) error {
	if f.overrides[tenantID] == nil {
		f.overrides[tenantID] = make(map[string]bool)
	}
	f.overrides[tenantID][toolName] = isEnabled
	return nil
}

func (f *fakeOverrides) RemoveOverride(ctx context.Context, tenantID, toolName string) error {
	delete(f.overrides[tenantID], toolName)
	return nil
}

func newTestSelector() (*Selector, *fakeTenants, *fakeOverrides) {
	catalog := NewCatalog(DefaultEntries())
	tenants := &fakeTenants{plans: map[string]Plan{"starter-tenant": PlanStarter, "ent-tenant": PlanEnterprise}}
	overrides := &fakeOverrides{overrides: make(map[string]map[string]bool)}
	return NewSelector(catalog, tenants, overrides, []string{"insights.training_load"}), tenants, overrides
}

func TestGlobalDisabledWinsOverEverything(t *testing.T) {
	sel, _, overrides := newTestSelector()
	overrides.overrides["ent-tenant"] = map[string]bool{"insights.training_load": true}

	enabled, err := sel.IsToolEnabled(context.Background(), "ent-tenant", "insights.training_load")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestTenantOverrideWinsOverPlanRestriction(t *testing.T) {
	sel, _, overrides := newTestSelector()
	overrides.overrides["starter-tenant"] = map[string]bool{"sleep.list_sessions": true}

	enabled, err := sel.IsToolEnabled(context.Background(), "starter-tenant", "sleep.list_sessions")
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestPlanRestrictionAppliesWithoutOverride(t *testing.T) {
	sel, _, _ := newTestSelector()

	enabled, err := sel.IsToolEnabled(context.Background(), "starter-tenant", "sleep.list_sessions")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestDefaultEnabledForEligiblePlan(t *testing.T) {
	sel, _, _ := newTestSelector()

	enabled, err := sel.IsToolEnabled(context.Background(), "starter-tenant", "athlete.get")
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestUnknownTenantFallsBackToEnterprise(t *testing.T) {
	sel, _, _ := newTestSelector()

	enabled, err := sel.IsToolEnabled(context.Background(), "nonexistent-tenant", "sleep.list_sessions")
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestUnknownToolReturnsUnknownTool(t *testing.T) {
	sel, _, _ := newTestSelector()

	_, err := sel.IsToolEnabled(context.Background(), "ent-tenant", "not.a.tool")
	require.Error(t, err)
}

func TestSetOverrideInvalidatesCache(t *testing.T) {
	sel, _, _ := newTestSelector()

	before, err := sel.IsToolEnabled(context.Background(), "starter-tenant", "sleep.list_sessions")
	require.NoError(t, err)
	require.False(t, before)

	require.NoError(t, sel.SetOverride(context.Background(), "starter-tenant", "sleep.list_sessions", true, "admin-1", "customer request"))

	after, err := sel.IsToolEnabled(context.Background(), "starter-tenant", "sleep.list_sessions")
	require.NoError(t, err)
	require.True(t, after)
}

func TestAvailabilitySummaryCounts(t *testing.T) {
	sel, _, _ := newTestSelector()

	summary, err := sel.GetAvailabilitySummary(context.Background(), "starter-tenant")
	require.NoError(t, err)
	require.Equal(t, len(DefaultEntries()), summary.Total)
	require.Greater(t, summary.PlanRestricted, 0)
}
