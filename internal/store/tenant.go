package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tenant mirrors the Tenant entity from §3.
type Tenant struct {
	ID          uuid.UUID
	Slug        string
	DisplayName string
	Plan        string
	OwnerUserID uuid.UUID
	CreatedAt   time.Time
}

func (s *Store) CreateTenant(ctx context.Context, t *Tenant) error {
	const q = `
		INSERT INTO tenants (id, slug, display_name, plan, owner_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING created_at`
	err := s.pool.QueryRow(ctx, q, t.ID, t.Slug, t.DisplayName, t.Plan, t.OwnerUserID).Scan(&t.CreatedAt)
	return translateErr(err, "")
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*Tenant, error) {
	const q = `SELECT id, slug, display_name, plan, owner_user_id, created_at FROM tenants WHERE slug = $1`
	var t Tenant
	err := s.pool.QueryRow(ctx, q, slug).Scan(&t.ID, &t.Slug, &t.DisplayName, &t.Plan, &t.OwnerUserID, &t.CreatedAt)
	if err != nil {
		return nil, translateErr(err, "tenant not found")
	}
	return &t, nil
}

func (s *Store) GetTenantByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	const q = `SELECT id, slug, display_name, plan, owner_user_id, created_at FROM tenants WHERE id = $1`
	var t Tenant
	err := s.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Slug, &t.DisplayName, &t.Plan, &t.OwnerUserID, &t.CreatedAt)
	if err != nil {
		return nil, translateErr(err, "tenant not found")
	}
	return &t, nil
}
