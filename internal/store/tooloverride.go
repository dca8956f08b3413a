package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantToolOverride mirrors §3's per-tenant tool enable/disable record.
type TenantToolOverride struct {
	TenantID     uuid.UUID
	ToolName     string
	IsEnabled    bool
	SetByAdmin   uuid.UUID
	Reason       *string
	SetAt        time.Time
}

func (s *Store) SetTenantToolOverride(ctx context.Context, o TenantToolOverride) error {
	const q = `
		INSERT INTO tenant_tool_overrides (tenant_id, tool_name, is_enabled, set_by_admin, reason, set_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (tenant_id, tool_name) DO UPDATE SET
			is_enabled = excluded.is_enabled,
			set_by_admin = excluded.set_by_admin,
			reason = excluded.reason,
			set_at = now()`
	_, err := s.pool.Exec(ctx, q, o.TenantID, o.ToolName, o.IsEnabled, o.SetByAdmin, o.Reason)
	return translateErr(err, "")
}

func (s *Store) GetTenantToolOverrides(ctx context.Context, tenantID uuid.UUID) ([]TenantToolOverride, error) {
	const q = `SELECT tenant_id, tool_name, is_enabled, set_by_admin, reason, set_at FROM tenant_tool_overrides WHERE tenant_id = $1`
	rows, err := s.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, translateErr(err, "")
	}
	defer rows.Close()

	var overrides []TenantToolOverride
	for rows.Next() {
		var o TenantToolOverride
		if err := rows.Scan(&o.TenantID, &o.ToolName, &o.IsEnabled, &o.SetByAdmin, &o.Reason, &o.SetAt); err != nil {
			return nil, translateErr(err, "")
		}
		overrides = append(overrides, o)
	}
	return overrides, translateErr(rows.Err(), "")
}
