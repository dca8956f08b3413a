package store

import (
	"context"

	"github.com/pierre-fitness/pierre-core/internal/usage"
)

// UsageSink adapts Store to usage.Sink.
type UsageSink struct{ *Store }

func (u UsageSink) Insert(ctx context.Context, records []usage.Record) error {
	rows := make([]UsageRecord, len(records))
	for i, r := range records {
		var errPtr *string
		if r.Error != "" {
			errPtr = &r.Error
		}
		var ipPtr, uaPtr *string
		if r.IP != "" {
			ipPtr = &r.IP
		}
		if r.UserAgent != "" {
			uaPtr = &r.UserAgent
		}
		rows[i] = UsageRecord{
			PrincipalID:   r.PrincipalID,
			PrincipalKind: r.PrincipalKind,
			ToolName:      r.ToolName,
			BytesIn:       r.BytesIn,
			BytesOut:      r.BytesOut,
			LatencyMs:     r.LatencyMs,
			StatusCode:    r.StatusCode,
			Error:         errPtr,
			IP:            ipPtr,
			UserAgent:     uaPtr,
			Timestamp:     r.Timestamp,
		}
	}
	return u.InsertUsageRecords(ctx, rows)
}
