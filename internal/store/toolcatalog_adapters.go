package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/toolcatalog"
)

// TenantPlanLookup adapts Store to toolcatalog.TenantLookup.
type TenantPlanLookup struct{ *Store }

func (t TenantPlanLookup) GetTenantPlan(ctx context.Context, tenantID string) (toolcatalog.Plan, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return "", err
	}
	tenant, err := t.GetTenantByID(ctx, id)
	if err != nil {
		return "", err
	}
	return toolcatalog.Plan(tenant.Plan), nil
}

// ToolOverrideStore adapts Store to toolcatalog.OverrideStore.
type ToolOverrideStore struct{ *Store }

func (o ToolOverrideStore) GetOverrides(ctx context.Context, tenantID string) (map[string]bool, error) {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := o.GetTenantToolOverrides(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.ToolName] = r.IsEnabled
	}
	return out, nil
}

func (o ToolOverrideStore) SetOverride(ctx context.Context, tenantID, toolName string, isEnabled bool, adminID, reason string) error {
	tid, err := uuid.Parse(tenantID)
	if err != nil {
		return err
	}
	aid, err := uuid.Parse(adminID)
	if err != nil {
		return err
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}
	return o.SetTenantToolOverride(ctx, TenantToolOverride{
		TenantID:   tid,
		ToolName:   toolName,
		IsEnabled:  isEnabled,
		SetByAdmin: aid,
		Reason:     reasonPtr,
	})
}

func (o ToolOverrideStore) RemoveOverride(ctx context.Context, tenantID, toolName string) error {
	id, err := uuid.Parse(tenantID)
	if err != nil {
		return err
	}
	_, err = o.pool.Exec(ctx, `DELETE FROM tenant_tool_overrides WHERE tenant_id = $1 AND tool_name = $2`, id, toolName)
	return translateErr(err, "")
}
