package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Session mirrors §3's Session entity (A2A OAuth2 session).
type Session struct {
	ID             uuid.UUID
	ClientID       string
	UserID         *uuid.UUID
	GrantedScopes  []string
	CreatedAt      time.Time
	LastActivity   time.Time
	ExpiresAt      time.Time
	RequestsCount  int64
}

func (s *Store) CreateSession(ctx context.Context, clientID string, userID *uuid.UUID, scopes []string, ttl time.Duration) (*Session, error) {
	sess := &Session{
		ID:            uuid.New(),
		ClientID:      clientID,
		UserID:        userID,
		GrantedScopes: scopes,
		ExpiresAt:     time.Now().Add(ttl),
	}
	const q = `
		INSERT INTO sessions (id, client_id, user_id, granted_scopes, created_at, last_activity, expires_at, requests_count)
		VALUES ($1, $2, $3, $4, now(), now(), $5, 0)
		RETURNING created_at, last_activity`
	err := s.pool.QueryRow(ctx, q, sess.ID, sess.ClientID, sess.UserID, sess.GrantedScopes, sess.ExpiresAt).
		Scan(&sess.CreatedAt, &sess.LastActivity)
	if err != nil {
		return nil, translateErr(err, "")
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	const q = `SELECT id, client_id, user_id, granted_scopes, created_at, last_activity, expires_at, requests_count FROM sessions WHERE id = $1`
	var sess Session
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&sess.ID, &sess.ClientID, &sess.UserID, &sess.GrantedScopes, &sess.CreatedAt, &sess.LastActivity, &sess.ExpiresAt, &sess.RequestsCount)
	if err != nil {
		return nil, translateErr(err, "session not found")
	}
	if time.Now().After(sess.ExpiresAt) {
		return nil, pierreerr.New(pierreerr.KindUnauthenticated, "session has expired")
	}
	return &sess, nil
}

func (s *Store) TouchSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `UPDATE sessions SET last_activity = now(), requests_count = requests_count + 1 WHERE id = $1`, id)
	return translateErr(err, "")
}

func (s *Store) RevokeSession(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return translateErr(err, "")
}
