package usage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	mu      sync.Mutex
	batches [][]Record
}

func (f *fakeSink) Insert(ctx context.Context, records []Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := make([]Record, len(records))
	copy(cp, records)
	f.batches = append(f.batches, cp)
	return nil
}

func (f *fakeSink) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestRecorderFlushesOnTimer(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, Config{FlushInterval: 20 * time.Millisecond, BatchSize: 1000})
	defer r.Close()

	r.Record(Record{ToolName: "activities.list", PrincipalKind: "User"})

	require.Eventually(t, func() bool { return sink.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorderFlushesOnBatchSize(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, Config{FlushInterval: time.Hour, BatchSize: 5})
	defer r.Close()

	for i := 0; i < 5; i++ {
		r.Record(Record{ToolName: "activities.list", PrincipalKind: "User"})
	}

	require.Eventually(t, func() bool { return sink.total() == 5 }, time.Second, 5*time.Millisecond)
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	sink := &fakeSink{}
	r := New(sink, Config{FlushInterval: time.Hour, BatchSize: 1_000_000, BufferSize: 2})
	defer r.Close()

	for i := 0; i < 10; i++ {
		r.Record(Record{ToolName: "activities.list", PrincipalKind: "User"})
	}

	// Never blocks the caller regardless of buffer pressure.
	require.True(t, true)
}
