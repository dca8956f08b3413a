package toolcatalog

import (
	"context"
	"sync"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// TenantInfo is the narrow tenant view the selection engine needs.
type TenantInfo struct {
	Plan Plan
}

// TenantLookup resolves a tenant's plan. Missing tenants fall back to
// Enterprise (most permissive), per spec §4.6, to keep the system
// available during bootstrap.
type TenantLookup interface {
	GetTenantPlan(ctx context.Context, tenantID string) (Plan, error)
}

// OverrideStore is the persistence side of per-tenant tool overrides.
type OverrideStore interface {
	GetOverrides(ctx context.Context, tenantID string) (map[string]bool, error)
	SetOverride(ctx context.Context, tenantID, toolName string, isEnabled bool, adminID, reason string) error
	RemoveOverride(ctx context.Context, tenantID, toolName string) error
}

// Selector resolves the effective tool set for a tenant, applying the
// four-source precedence from spec §4.6 and caching the resolved view
// per tenant until an override mutation invalidates it.
type Selector struct {
	catalog *Catalog
	tenants TenantLookup
	overrides OverrideStore

	globalDisabled map[string]bool

	mu    sync.RWMutex
	cache map[string][]Resolved
}

// NewSelector wires the static catalog, tenant plan lookup, and override
// store together. globalDisabled is the deployment-config set from
// spec §4.6 input 4, fixed for the process lifetime.
func NewSelector(catalog *Catalog, tenants TenantLookup, overrides OverrideStore, globalDisabled []string) *Selector {
	disabled := make(map[string]bool, len(globalDisabled))
	for _, name := range globalDisabled {
		disabled[name] = true
	}
	return &Selector{
		catalog:        catalog,
		tenants:        tenants,
		overrides:      overrides,
		globalDisabled: disabled,
		cache:          make(map[string][]Resolved),
	}
}

// GetEffectiveTools returns the full catalog with resolved enabled
// states for tenantID, per spec §4.6's precedence order.
func (s *Selector) GetEffectiveTools(ctx context.Context, tenantID string) ([]Resolved, error) {
	s.mu.RLock()
	if cached, ok := s.cache[tenantID]; ok {
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	plan, err := s.tenants.GetTenantPlan(ctx, tenantID)
	if err != nil {
		plan = PlanEnterprise
	}

	overrides, err := s.overrides.GetOverrides(ctx, tenantID)
	if err != nil {
		overrides = nil
	}

	resolved := make([]Resolved, 0, len(s.catalog.entries))
	for _, tool := range s.catalog.entries {
		resolved = append(resolved, s.resolveOne(tool, plan, overrides))
	}

	s.mu.Lock()
	s.cache[tenantID] = resolved
	s.mu.Unlock()

	return resolved, nil
}

func (s *Selector) resolveOne(tool Entry, plan Plan, overrides map[string]bool) Resolved {
	if s.globalDisabled[tool.ToolName] {
		return Resolved{Tool: tool, IsEnabled: false, Source: SourceGlobalDisabled}
	}
	if enabled, ok := overrides[tool.ToolName]; ok {
		return Resolved{Tool: tool, IsEnabled: enabled, Source: SourceTenantOverride}
	}
	if !plan.atLeast(tool.MinPlan) {
		return Resolved{Tool: tool, IsEnabled: false, Source: SourcePlanRestricted}
	}
	return Resolved{Tool: tool, IsEnabled: true, Source: SourceDefault}
}

// GetEnabledTools filters GetEffectiveTools down to enabled entries.
func (s *Selector) GetEnabledTools(ctx context.Context, tenantID string) ([]Resolved, error) {
	all, err := s.GetEffectiveTools(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]Resolved, 0, len(all))
	for _, r := range all {
		if r.IsEnabled {
			out = append(out, r)
		}
	}
	return out, nil
}

// IsToolEnabled reports whether toolName is enabled for tenantID.
func (s *Selector) IsToolEnabled(ctx context.Context, tenantID, toolName string) (bool, error) {
	if _, ok := s.catalog.Lookup(toolName); !ok {
		return false, pierreerr.New(pierreerr.KindUnknownTool, "unknown tool: "+toolName)
	}
	all, err := s.GetEffectiveTools(ctx, tenantID)
	if err != nil {
		return false, err
	}
	for _, r := range all {
		if r.Tool.ToolName == toolName {
			return r.IsEnabled, nil
		}
	}
	return false, pierreerr.New(pierreerr.KindUnknownTool, "unknown tool: "+toolName)
}

// SetOverride persists a tenant override and invalidates the tenant's
// cached resolution.
func (s *Selector) SetOverride(ctx context.Context, tenantID, toolName string, isEnabled bool, adminID, reason string) error {
	if _, ok := s.catalog.Lookup(toolName); !ok {
		return pierreerr.New(pierreerr.KindUnknownTool, "unknown tool: "+toolName)
	}
	if err := s.overrides.SetOverride(ctx, tenantID, toolName, isEnabled, adminID, reason); err != nil {
		return err
	}
	s.invalidate(tenantID)
	return nil
}

func (s *Selector) RemoveOverride(ctx context.Context, tenantID, toolName string) error {
	if err := s.overrides.RemoveOverride(ctx, tenantID, toolName); err != nil {
		return err
	}
	s.invalidate(tenantID)
	return nil
}

func (s *Selector) invalidate(tenantID string) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}

// GlobalDisabled returns the deployment-wide disabled tool names, for the
// GET /admin/tools/global-disabled route.
func (s *Selector) GlobalDisabled() []string {
	out := make([]string, 0, len(s.globalDisabled))
	for name := range s.globalDisabled {
		out = append(out, name)
	}
	return out
}

// GetAvailabilitySummary implements spec §4.6's get_availability_summary.
func (s *Selector) GetAvailabilitySummary(ctx context.Context, tenantID string) (AvailabilitySummary, error) {
	all, err := s.GetEffectiveTools(ctx, tenantID)
	if err != nil {
		return AvailabilitySummary{}, err
	}

	summary := AvailabilitySummary{Total: len(all), ByCategory: make(map[string]int)}
	for _, r := range all {
		summary.ByCategory[r.Tool.Category]++
		if r.IsEnabled {
			summary.Enabled++
		}
		switch r.Source {
		case SourceTenantOverride:
			summary.Overridden++
		case SourcePlanRestricted:
			summary.PlanRestricted++
		}
	}
	return summary, nil
}
