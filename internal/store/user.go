package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pierre-fitness/pierre-core/internal/auth"
	"github.com/pierre-fitness/pierre-core/internal/pagination"
	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// User mirrors the User entity from §3.
type User struct {
	ID            uuid.UUID
	Email         string
	DisplayName   *string
	PasswordHash  string
	Tier          string
	TenantID      *uuid.UUID
	Status        string
	IsAdmin       bool
	ApprovedBy    *uuid.UUID
	ApprovedAt    *time.Time
	CreatedAt     time.Time
	LastActive    time.Time
	AuthProvider  string
}

func (s *Store) CreateUser(ctx context.Context, u *User) error {
	const q = `
		INSERT INTO users (id, email, display_name, password_hash, tier, tenant_id, status, is_admin, auth_provider, created_at, last_active)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, last_active`
	err := s.pool.QueryRow(ctx, q, u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Tier, u.TenantID, u.Status, u.IsAdmin, u.AuthProvider).
		Scan(&u.CreatedAt, &u.LastActive)
	return translateErr(err, "")
}

func (s *Store) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Tier, &u.TenantID, &u.Status,
		&u.IsAdmin, &u.ApprovedBy, &u.ApprovedAt, &u.CreatedAt, &u.LastActive, &u.AuthProvider)
	if err != nil {
		return nil, translateErr(err, "user not found")
	}
	return &u, nil
}

const userColumns = `id, email, display_name, password_hash, tier, tenant_id, status, is_admin, approved_by, approved_at, created_at, last_active, auth_provider`

func (s *Store) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return s.scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = lower($1)`, email)
	return s.scanUser(row)
}

// UpdateUserStatus implements spec §4.2's admin-audited status transition.
// actorTokenID is the admin-token id performing the change and is recorded
// on the audit row, never silently dropped.
func (s *Store) UpdateUserStatus(ctx context.Context, userID uuid.UUID, status string, actorTokenID uuid.UUID) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET status = $1 WHERE id = $2`, status, userID)
		if err != nil {
			return translateErr(err, "")
		}
		if tag.RowsAffected() == 0 {
			return pierreerr.New(pierreerr.KindNotFound, "user not found")
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO audit_log (id, actor_admin_token_id, action, target_id, created_at)
			VALUES (gen_random_uuid(), $1, 'update_user_status:'||$2, $3, now())`,
			actorTokenID, status, userID)
		return translateErr(err, "")
	})
}

func (s *Store) ApproveUser(ctx context.Context, userID, approvedBy uuid.UUID) error {
	const q = `UPDATE users SET status = 'Active', approved_by = $1, approved_at = now() WHERE id = $2`
	tag, err := s.pool.Exec(ctx, q, approvedBy, userID)
	if err != nil {
		return translateErr(err, "")
	}
	if tag.RowsAffected() == 0 {
		return pierreerr.New(pierreerr.KindNotFound, "user not found")
	}
	return nil
}

// GetUsersByStatusCursor implements the cursor-paginated list query from
// spec §4.2, newest-first with (created_at_ms, id) tie-break.
func (s *Store) GetUsersByStatusCursor(ctx context.Context, status string, p pagination.Params) (pagination.Page[User], error) {
	limit := p.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args := []any{status}
	where := "status = $1"
	if p.Cursor != nil {
		if p.Cursor.SortBy != pagination.SortNewest {
			return pagination.Page[User]{}, pierreerr.New(pierreerr.KindInvalidCursor, "cursor sort tag does not match requested sort")
		}
		args = append(args, time.UnixMilli(p.Cursor.CreatedAtMs), p.Cursor.ID)
		if p.Direction == pagination.DirectionBackward {
			where += " AND (created_at, id) > ($2, $3)"
		} else {
			where += " AND (created_at, id) < ($2, $3)"
		}
	}

	order := "created_at DESC, id DESC"
	if p.Direction == pagination.DirectionBackward {
		order = "created_at ASC, id ASC"
	}

	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` ORDER BY ` + order + ` LIMIT ` + strconv.Itoa(limit+1)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return pagination.Page[User]{}, translateErr(err, "")
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return pagination.Page[User]{}, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return pagination.Page[User]{}, translateErr(err, "")
	}

	hasMore := len(users) > limit
	if hasMore {
		users = users[:limit]
	}
	if p.Direction == pagination.DirectionBackward {
		for i, j := 0, len(users)-1; i < j; i, j = i+1, j-1 {
			users[i], users[j] = users[j], users[i]
		}
	}

	page := pagination.Page[User]{Items: users, HasMore: hasMore, Count: len(users)}
	if len(users) > 0 {
		last := users[len(users)-1]
		cur := pagination.NewNewestCursor(last.CreatedAt.UnixMilli(), last.ID.String())
		encoded := cur.Encode()
		page.NextCursor = &encoded
	}
	return page, nil
}

// auth.UserLookup adapter.

func toAuthUserRecord(u *User) *auth.UserRecord {
	tenantID := ""
	if u.TenantID != nil {
		tenantID = u.TenantID.String()
	}
	return &auth.UserRecord{
		ID:           u.ID.String(),
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Tier:         u.Tier,
		TenantID:     tenantID,
		Status:       u.Status,
	}
}

// UserAuthLookup adapts Store to auth.UserLookup.
type UserAuthLookup struct{ *Store }

func (l UserAuthLookup) GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error) {
	u, err := l.Store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return toAuthUserRecord(u), nil
}
