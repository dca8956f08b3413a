// Package usage implements the Usage Recorder half of C7: every tool-call
// response path writes a usage record asynchronously, batched on a bounded
// buffer so a slow downstream sink never blocks the request path (spec
// §4.7). New code in the teacher's idiom of ticker-driven background
// goroutines (internal/mcpserver/server/session.go,
// internal/httpapi/ratelimit.go), since the teacher has no usage-tracking
// equivalent to adapt.
package usage

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Record mirrors spec §3's UsageRecord, independent of any storage type so
// this package stays free of an internal/store import.
type Record struct {
	PrincipalID   string
	PrincipalKind string
	ToolName      string
	BytesIn       *int64
	BytesOut      *int64
	LatencyMs     int64
	StatusCode    int
	Error         string
	IP            string
	UserAgent     string
	Timestamp     time.Time
}

// Sink persists a batch of records. internal/store.Store.InsertUsageRecords
// satisfies this once adapted with a thin wrapper at wiring time.
type Sink interface {
	Insert(ctx context.Context, records []Record) error
}

var (
	recordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pierre_usage_records_total", Help: "Usage records accepted into the recorder buffer."},
		[]string{"tool_name", "principal_kind"},
	)
	droppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pierre_usage_records_dropped_total", Help: "Usage records dropped because the buffer was full."},
	)
	flushLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pierre_usage_flush_duration_seconds", Help: "Time taken to flush a usage-record batch to the sink."},
	)
)

func init() {
	prometheus.MustRegister(recordedTotal, droppedTotal, flushLatency)
}

// Recorder buffers Records on a bounded channel and flushes them to Sink
// in batches no older than flushInterval (spec §4.7: "batch window bounded
// ≤ 5s"). When the buffer is full, the oldest-pending write is dropped
// rather than blocking the caller.
type Recorder struct {
	sink          Sink
	buf           chan Record
	flushInterval time.Duration
	batchSize     int
	done          chan struct{}
}

// Config controls buffer capacity and flush cadence.
type Config struct {
	BufferSize    int
	BatchSize     int
	FlushInterval time.Duration
}

// New starts the background flush loop immediately; call Close to stop it
// and flush any remaining buffered records.
func New(sink Sink, cfg Config) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10_000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.FlushInterval <= 0 || cfg.FlushInterval > 5*time.Second {
		cfg.FlushInterval = 5 * time.Second
	}

	r := &Recorder{
		sink:          sink,
		buf:           make(chan Record, cfg.BufferSize),
		flushInterval: cfg.FlushInterval,
		batchSize:     cfg.BatchSize,
		done:          make(chan struct{}),
	}
	go r.flushLoop()
	return r
}

// Record enqueues a usage record without blocking; when the buffer is full
// the oldest buffered record is dropped to make room, never stalling the
// request path that called it.
func (r *Recorder) Record(rec Record) {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case r.buf <- rec:
		recordedTotal.WithLabelValues(rec.ToolName, rec.PrincipalKind).Inc()
	default:
		select {
		case old := <-r.buf:
			droppedTotal.Inc()
			log.Warn().Str("tool_name", old.ToolName).Msg("usage recorder buffer full, dropping oldest record")
		default:
		}
		select {
		case r.buf <- rec:
			recordedTotal.WithLabelValues(rec.ToolName, rec.PrincipalKind).Inc()
		default:
			droppedTotal.Inc()
		}
	}
}

func (r *Recorder) flushLoop() {
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, r.batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.sink.Insert(ctx, batch); err != nil {
			log.Error().Err(err).Int("batch_size", len(batch)).Msg("usage recorder flush failed")
		}
		cancel()
		flushLatency.Observe(time.Since(start).Seconds())
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-r.buf:
			batch = append(batch, rec)
			if len(batch) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-r.done:
			for {
				select {
				case rec := <-r.buf:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops the flush loop after draining the buffer once more.
func (r *Recorder) Close() {
	close(r.done)
}
