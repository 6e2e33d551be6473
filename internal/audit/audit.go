// Package audit provides fire-and-forget audit trail emission. Writes
// go through a buffered worker so request latency never depends on the
// audit store; a failed write is retried once and then logged, never
// surfaced to the caller.
package audit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"tillpoint/backend/internal/domain"
)

type Sink interface {
	Emit(entry domain.AuditLog)
}

// NopSink discards everything. Used in tests that do not assert on the
// audit trail.
type NopSink struct{}

func (NopSink) Emit(domain.AuditLog) {}

// Writer is the slice of the repository the worker needs.
type Writer interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
}

const (
	writeTimeout = 5 * time.Second
	retryBackoff = 100 * time.Millisecond
)

type Worker struct {
	repo  Writer
	log   *zap.Logger
	queue chan domain.AuditLog
	wg    sync.WaitGroup
}

// NewWorker starts the drain goroutine immediately. Close flushes the
// queue and must be called on shutdown.
func NewWorker(repo Writer, log *zap.Logger, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	w := &Worker{
		repo:  repo,
		log:   log,
		queue: make(chan domain.AuditLog, buffer),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Emit never blocks. When the buffer is full the entry is dropped and
// the drop is logged at error level.
func (w *Worker) Emit(entry domain.AuditLog) {
	select {
	case w.queue <- entry:
	default:
		w.log.Error("audit queue full, entry dropped",
			zap.String("tenant_id", entry.TenantID),
			zap.String("action", entry.Action),
			zap.String("entity_id", entry.EntityID))
	}
}

func (w *Worker) Close() {
	close(w.queue)
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	for entry := range w.queue {
		w.write(entry)
	}
}

func (w *Worker) write(entry domain.AuditLog) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	err := w.repo.CreateAuditLog(ctx, entry)
	if err == nil {
		return
	}
	time.Sleep(retryBackoff)
	if err = w.repo.CreateAuditLog(ctx, entry); err == nil {
		return
	}
	w.log.Error("audit write failed",
		zap.String("tenant_id", entry.TenantID),
		zap.String("action", entry.Action),
		zap.String("entity_id", entry.EntityID),
		zap.Error(err))
}
