package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestInsertUsageRecordsAndStats(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	principalID := uuid.New().String()
	errMsg := "upstream timeout"
	records := []UsageRecord{
		{PrincipalID: principalID, PrincipalKind: "ApiKey", ToolName: "get_activities", LatencyMs: 120, StatusCode: 200, Timestamp: time.Now()},
		{PrincipalID: principalID, PrincipalKind: "ApiKey", ToolName: "get_activities", LatencyMs: 80, StatusCode: 500, Error: &errMsg, Timestamp: time.Now()},
	}
	require.NoError(t, st.InsertUsageRecords(ctx, records))

	stats, err := st.UsageStatsForPrincipal(ctx, principalID, 7)
	require.NoError(t, err)
	require.Equal(t, int64(2), stats.CallCount)
	require.Equal(t, int64(1), stats.ErrorCount)
	require.InDelta(t, 100, stats.AvgLatencyMs, 0.5)
}

func TestInsertUsageRecords_EmptyIsNoop(t *testing.T) {
	st := testStore(t)
	require.NoError(t, st.InsertUsageRecords(context.Background(), nil))
}
