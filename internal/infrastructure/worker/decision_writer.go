package worker

import (
	"context"
	"sync"
	"time"

	"github.com/leadscore/backend/internal/domain/scoring"
	"go.uber.org/zap"
)

// WriterMetrics counts persistence failures and queue drops.
type WriterMetrics interface {
	RecordPersistFailure(ctx context.Context, tool string)
	RecordQueueDrop(ctx context.Context, tool string)
}

// DecisionWriterConfig holds configuration for the async decision writer
type DecisionWriterConfig struct {
	QueueSize      int
	Workers        int
	MaxAttempts    int
	RetryBaseDelay time.Duration
}

// DefaultDecisionWriterConfig returns default configuration
func DefaultDecisionWriterConfig() DecisionWriterConfig {
	return DecisionWriterConfig{
		QueueSize:      1024,
		Workers:        4,
		MaxAttempts:    3,
		RetryBaseDelay: 100 * time.Millisecond,
	}
}

// DecisionWriter persists decision records off the request path. The
// queue is bounded; under sustained backpressure the oldest queued
// record is dropped in favor of the newest. Persistence is retried
// with exponential backoff, relying on the repository's idempotent
// save for safety.
type DecisionWriter struct {
	repo    scoring.DecisionRepository
	config  DecisionWriterConfig
	metrics WriterMetrics
	logger  *zap.Logger

	queue  chan *scoring.Decision
	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDecisionWriter creates a decision writer. metrics may be nil.
func NewDecisionWriter(repo scoring.DecisionRepository, config DecisionWriterConfig, metrics WriterMetrics, logger *zap.Logger) *DecisionWriter {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultDecisionWriterConfig().QueueSize
	}
	if config.Workers <= 0 {
		config.Workers = DefaultDecisionWriterConfig().Workers
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultDecisionWriterConfig().MaxAttempts
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultDecisionWriterConfig().RetryBaseDelay
	}
	return &DecisionWriter{
		repo:    repo,
		config:  config,
		metrics: metrics,
		logger:  logger,
		queue:   make(chan *scoring.Decision, config.QueueSize),
	}
}

// Start launches the worker pool
func (w *DecisionWriter) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	for i := 0; i < w.config.Workers; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx)
	}

	w.logger.Info("decision writer started",
		zap.Int("workers", w.config.Workers),
		zap.Int("queue_size", w.config.QueueSize),
	)
	return nil
}

// Stop drains in-flight work and stops the pool
func (w *DecisionWriter) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("decision writer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue hands a decision to the writer without blocking. When the
// queue is full the oldest queued record is evicted to make room; the
// call reports false only if the record could not be accepted at all.
func (w *DecisionWriter) Enqueue(d *scoring.Decision) bool {
	select {
	case w.queue <- d:
		return true
	default:
	}

	// The eviction and re-offer must not interleave with another
	// producer doing the same, or both could fail spuriously.
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case old := <-w.queue:
		w.logger.Warn("decision queue full, evicted oldest record",
			zap.String("dropped_id", old.ID.String()),
			zap.String("tool", old.ToolName))
		if w.metrics != nil {
			w.metrics.RecordQueueDrop(context.Background(), old.ToolName)
		}
	default:
	}

	select {
	case w.queue <- d:
		return true
	default:
		if w.metrics != nil {
			w.metrics.RecordQueueDrop(context.Background(), d.ToolName)
		}
		return false
	}
}

// QueueDepth reports the current number of queued records.
func (w *DecisionWriter) QueueDepth() int {
	return len(w.queue)
}

func (w *DecisionWriter) workerLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			// Drain whatever is already queued before exiting.
			for {
				select {
				case d := <-w.queue:
					w.persist(context.Background(), d)
				default:
					return
				}
			}
		case d := <-w.queue:
			w.persist(ctx, d)
		}
	}
}

// persist saves one decision, retrying transient failures. The save is
// idempotent on the decision ID so a retry after a partial write is
// safe.
func (w *DecisionWriter) persist(ctx context.Context, d *scoring.Decision) {
	var err error
	for attempt := 0; attempt < w.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := w.config.RetryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
		if err = w.repo.Save(ctx, d); err == nil {
			return
		}
	}

	w.logger.Error("decision record lost after retries",
		zap.String("decision_id", d.ID.String()),
		zap.String("tool", d.ToolName),
		zap.Int("attempts", w.config.MaxAttempts),
		zap.Error(err))
	if w.metrics != nil {
		w.metrics.RecordPersistFailure(ctx, d.ToolName)
	}
}
