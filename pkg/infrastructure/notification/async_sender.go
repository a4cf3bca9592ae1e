package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

// ErrQueueFull is returned when the async queue cannot take another batch
var ErrQueueFull = errors.New("notification queue full")

// ErrSenderClosed is returned for batches sent after Close
var ErrSenderClosed = errors.New("notification sender closed")

// queuedBatch keeps the submitter's span so delivery stays in the same trace
type queuedBatch struct {
	span   trace.SpanContext
	alerts []entities.LowStockAlert
}

// AsyncSender queues batches and delivers them from one background worker, so a slow
// transport never holds up order submission. Close drains the queue.
type AsyncSender struct {
	next    services.NotificationService
	queue   chan queuedBatch
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

var _ services.NotificationService = (*AsyncSender)(nil)

// NewAsyncSender starts the worker. timeout bounds each delivery.
func NewAsyncSender(next services.NotificationService, queueSize int, timeout time.Duration, logger *zap.Logger) *AsyncSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if queueSize < 1 {
		queueSize = 1
	}
	s := &AsyncSender{
		next:    next,
		queue:   make(chan queuedBatch, queueSize),
		timeout: timeout,
		logger:  logger.Named("async_sender"),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// SendLowStockAlert enqueues a copy of alerts without waiting for delivery
func (s *AsyncSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	batch := queuedBatch{
		span:   trace.SpanContextFromContext(ctx),
		alerts: append([]entities.LowStockAlert(nil), alerts...),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSenderClosed
	}

	select {
	case s.queue <- batch:
		return nil
	default:
		s.logger.Warn("dropping low stock alerts", zap.Int("alerts", len(batch.alerts)))
		return ErrQueueFull
	}
}

// Close stops accepting batches and waits for queued ones to be delivered or ctx to end
func (s *AsyncSender) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncSender) run() {
	defer close(s.done)
	for batch := range s.queue {
		ctx := context.Background()
		if batch.span.IsValid() {
			ctx = trace.ContextWithSpanContext(ctx, batch.span)
		}
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		if err := s.next.SendLowStockAlert(ctx, batch.alerts); err != nil {
			s.logger.Error("low stock delivery failed", zap.Int("alerts", len(batch.alerts)), zap.Error(err))
		}
		cancel()
	}
}
