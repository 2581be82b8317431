package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/bouncer/internal/bouncer/domain"
	"github.com/aussiebroadwan/bouncer/internal/bouncer/store"
	"github.com/aussiebroadwan/bouncer/pkg/httpx"
	"github.com/aussiebroadwan/bouncer/pkg/idx"
)

// Audit writer defaults.
const (
	DefaultAuditBuffer        = 1024
	DefaultAuditBatchSize     = 100
	DefaultAuditFlushInterval = time.Second
)

// AuditWriter persists guard decisions in batches off the request path.
// Record never blocks: when the buffer is full the record is dropped and
// counted.
type AuditWriter struct {
	Store         store.Store
	Logger        *slog.Logger
	BatchSize     int
	FlushInterval time.Duration

	ch      chan domain.DecisionRecord
	dropped atomic.Int64

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewAuditWriter creates a writer with a buffer of the given size. A size of
// 0 or less uses DefaultAuditBuffer.
func NewAuditWriter(st store.Store, logger *slog.Logger, buffer int) *AuditWriter {
	if buffer <= 0 {
		buffer = DefaultAuditBuffer
	}
	return &AuditWriter{
		Store:         st,
		Logger:        logger.With("component", "audit"),
		BatchSize:     DefaultAuditBatchSize,
		FlushInterval: DefaultAuditFlushInterval,
		ch:            make(chan domain.DecisionRecord, buffer),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Record implements httpx.Recorder.
func (w *AuditWriter) Record(_ context.Context, ev httpx.DecisionEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	rec := domain.DecisionRecord{
		ID:        idx.NewAt(ev.OccurredAt).String(),
		RequestID: ev.RequestID,
		Method:    ev.Method,
		Resource:  ev.Path,
		Allowed:   ev.Allowed(),
		Reason:    ev.Outcome(),
		Rule:      ev.Decision.Rule,
		Status:    ev.Status,
		CreatedAt: ev.OccurredAt,
	}
	if ev.Identity != nil {
		rec.Subject = ev.Identity.Subject
		rec.Principal = ev.Identity.Principal
	}

	select {
	case w.ch <- rec:
	default:
		if n := w.dropped.Add(1); n == 1 || n%100 == 0 {
			w.Logger.Warn("audit buffer full, dropping decisions", "dropped_total", n)
		}
	}
}

// Dropped returns how many records were discarded because the buffer was full.
func (w *AuditWriter) Dropped() int64 { return w.dropped.Load() }

// Start begins the background writer. Call Stop to flush and shut it down.
func (w *AuditWriter) Start() {
	go w.run()
	w.Logger.Info("audit writer started", "batch_size", w.BatchSize, "flush_interval", w.FlushInterval)
}

// Stop flushes whatever is buffered and waits for the writer to exit.
func (w *AuditWriter) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh
	w.Logger.Info("audit writer stopped", "dropped_total", w.Dropped())
}

func (w *AuditWriter) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.FlushInterval)
	defer ticker.Stop()

	batch := make([]domain.DecisionRecord, 0, w.BatchSize)
	for {
		select {
		case rec := <-w.ch:
			batch = append(batch, rec)
			if len(batch) >= w.BatchSize {
				batch = w.flush(batch)
			}
		case <-ticker.C:
			batch = w.flush(batch)
		case <-w.stopCh:
			for {
				select {
				case rec := <-w.ch:
					batch = append(batch, rec)
				default:
					w.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes batch in one transaction and returns it emptied.
func (w *AuditWriter) flush(batch []domain.DecisionRecord) []domain.DecisionRecord {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := w.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, rec := range batch {
			if err := tx.Decisions().InsertDecision(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		w.Logger.Error("failed to write audit batch", "error", err, "records", len(batch))
	} else {
		w.Logger.Debug("audit batch written", "records", len(batch))
	}
	return batch[:0]
}
