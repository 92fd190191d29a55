// Package telemetry implements the fire-and-forget resolution
// telemetry sink: a bounded queue drained by a single writer
// goroutine. Recording never blocks the request path and never
// surfaces an error to it.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"context-resolver/internal/domain"
)

const (
	defaultQueueSize = 256
	insertTimeout    = 5 * time.Second
	drainTimeout     = 10 * time.Second
)

// Sink buffers telemetry records and writes them asynchronously.
type Sink struct {
	store       domain.TelemetryStore
	logger      *slog.Logger
	queue       chan domain.TelemetryRecord
	dropped     atomic.Int64
	development bool

	stopOnce sync.Once
	quit     chan struct{}
	done     chan struct{}
}

// NewSink creates a sink and starts its writer goroutine. queueSize
// falls back to the default when non-positive. development enables
// drop logging, which stays silent in production.
func NewSink(store domain.TelemetryStore, logger *slog.Logger, queueSize int, development bool) *Sink {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	s := &Sink{
		store:       store,
		logger:      logger,
		queue:       make(chan domain.TelemetryRecord, queueSize),
		development: development,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	go s.run()
	return s
}

// Record enqueues one record. When the queue is full, or the sink has
// already been stopped, the record is dropped and counted; the caller
// is never blocked and never panics.
func (s *Sink) Record(record domain.TelemetryRecord) {
	select {
	case <-s.quit:
		s.drop(record)
		return
	default:
	}
	select {
	case s.queue <- record:
	default:
		s.drop(record)
	}
}

func (s *Sink) drop(record domain.TelemetryRecord) {
	n := s.dropped.Add(1)
	if s.development {
		s.logger.Warn("telemetry_record_dropped",
			slog.String("resolution_id", record.ResolutionID),
			slog.Int64("dropped_total", n))
	}
}

// Dropped returns how many records were lost to a full queue.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Stop signals the writer and waits for it to drain buffered records,
// abandoning the drain after a timeout. The intake channel is never
// closed, so late Record calls drop instead of panicking. Safe to call
// more than once.
func (s *Sink) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.done:
		case <-time.After(drainTimeout):
			s.logger.Warn("telemetry_drain_timeout",
				slog.Int("pending", len(s.queue)))
		}
	})
}

func (s *Sink) run() {
	defer close(s.done)

	for {
		select {
		case record := <-s.queue:
			s.write(record)
		case <-s.quit:
			for {
				select {
				case record := <-s.queue:
					s.write(record)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(record domain.TelemetryRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := s.store.Insert(ctx, record); err != nil && s.development {
		// Telemetry loss is acceptable; the resolution itself already
		// succeeded or failed on its own terms.
		s.logger.Warn("telemetry_insert_failed",
			slog.String("resolution_id", record.ResolutionID),
			slog.String("error", err.Error()))
	}
}
