// Package store implements the Persistence Layer (C2): tenant-scoped CRUD
// over every entity in the data model, cursor-paginated list queries, and
// the adapters that let internal/auth and internal/cryptoutil talk to
// Postgres without importing it directly.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pierre-fitness/pierre-core/internal/pierreerr"
)

// Store wraps the connection pool and is the receiver for every
// repository method in this package, grounded on the teacher's single
// *pgxpool.Pool-holding Store struct in internal/db.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an already-opened pool (see Open in pg.go) in a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() {
	s.pool.Close()
}

// translateErr maps pgx/Postgres failures to the domain error kinds the
// rest of the system expects (spec §4.2 failure semantics).
func translateErr(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return pierreerr.New(pierreerr.KindNotFound, notFoundMsg)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return pierreerr.Wrap(pierreerr.KindConflict, "unique constraint violated", err)
		case "23503": // foreign_key_violation
			return pierreerr.Wrap(pierreerr.KindConflict, "referenced row does not exist", err)
		}
	}
	return pierreerr.Wrap(pierreerr.KindStorageUnavailable, "storage operation failed", err)
}

// withTx runs fn inside a transaction, committing on nil error.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return translateErr(err, "")
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return translateErr(err, "")
	}
	return nil
}
