package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UsageRecord mirrors §3's per-call audit row.
type UsageRecord struct {
	ID            uuid.UUID
	PrincipalID   string
	PrincipalKind string
	ToolName      string
	BytesIn       *int64
	BytesOut      *int64
	LatencyMs     int64
	StatusCode    int
	Error         *string
	IP            *string
	UserAgent     *string
	Timestamp     time.Time
}

// InsertUsageRecords bulk-inserts the buffered batch the usage recorder
// (C7) flushes periodically, grounded on spec §4.7's bounded-async-buffer
// contract: the caller owns batching, this is a plain batched insert.
func (s *Store) InsertUsageRecords(ctx context.Context, records []UsageRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := make([][]any, len(records))
	for i, r := range records {
		id := r.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		batch[i] = []any{id, r.PrincipalID, r.PrincipalKind, r.ToolName, r.BytesIn, r.BytesOut, r.LatencyMs, r.StatusCode, r.Error, r.IP, r.UserAgent, r.Timestamp}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"usage_records"},
		[]string{"id", "principal_id", "principal_kind", "tool_name", "bytes_in", "bytes_out", "latency_ms", "status_code", "error", "ip", "user_agent", "timestamp"},
		pgx.CopyFromRows(batch),
	)
	return translateErr(err, "")
}
