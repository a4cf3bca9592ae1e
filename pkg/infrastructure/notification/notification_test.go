package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/fulfillment/pkg/infrastructure/testing"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func alerts(ids ...string) []entities.LowStockAlert {
	out := make([]entities.LowStockAlert, 0, len(ids))
	for _, id := range ids {
		out = append(out, entities.LowStockAlert{
			IngredientID:   entities.IngredientID(id),
			IngredientName: id,
			CurrentStock:   decimal.NewFromInt(1),
			MinStock:       decimal.NewFromInt(1),
			ReorderPoint:   decimal.NewFromInt(2),
			Unit:           "pcs",
		})
	}
	return out
}

func TestKafkaSender_PublishesOneMessagePerAlert(t *testing.T) {
	writer := &fakeWriter{}
	sender := NewKafkaSender(writer, zaptest.NewLogger(t))
	fixed := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	sender.now = func() time.Time { return fixed }

	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	ctx, span := provider.Tracer("test").Start(context.Background(), "submit")
	defer span.End()

	if err := sender.SendLowStockAlert(ctx, alerts("PATTY", "BUN")); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}

	if len(writer.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(writer.messages))
	}
	msg := writer.messages[0]
	if string(msg.Key) != "PATTY" {
		t.Errorf("Expected key PATTY, got %s", msg.Key)
	}

	var decoded LowStockMessage
	if err := json.Unmarshal(msg.Value, &decoded); err != nil {
		t.Fatalf("Payload is not JSON: %v", err)
	}
	if decoded.Type != "inventory.low_stock" || decoded.Alert.IngredientID != "PATTY" || !decoded.SentAt.Equal(fixed) {
		t.Errorf("Unexpected payload: %+v", decoded)
	}

	carrier := headerCarrier(msg.Headers)
	if carrier.Get("event-type") != "inventory.low_stock" {
		t.Errorf("Expected event-type header, got %v", carrier.Keys())
	}
	if carrier.Get("traceparent") == "" {
		t.Error("Expected trace context header")
	}

	if err := sender.Close(); err != nil || !writer.closed {
		t.Error("Expected Close to close the writer")
	}
}

func TestKafkaSender_WriteError(t *testing.T) {
	sender := NewKafkaSender(&fakeWriter{err: errors.New("leader not available")}, nil)

	err := sender.SendLowStockAlert(context.Background(), alerts("PATTY"))
	if err == nil || err.Error() != "publish low stock alerts: leader not available" {
		t.Errorf("Unexpected error: %v", err)
	}
	if err := sender.SendLowStockAlert(context.Background(), nil); err != nil {
		t.Errorf("Expected empty batch to be a no-op, got %v", err)
	}
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sender := NewLogSender(zap.New(core))

	if err := sender.SendLowStockAlert(context.Background(), alerts("PATTY", "BUN")); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}

	entries := logs.FilterMessage("ingredient needs reorder").All()
	if len(entries) != 2 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("Expected 2 warnings, got %d", len(entries))
	}
	if entries[1].ContextMap()["ingredient_id"] != "BUN" {
		t.Errorf("Unexpected fields: %v", entries[1].ContextMap())
	}
}

func TestEventStoreSender(t *testing.T) {
	store := events.NewInMemoryEventStore(zaptest.NewLogger(t))
	sender := NewEventStoreSender(store)

	if err := sender.SendLowStockAlert(context.Background(), alerts("PATTY")); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}
	recorded := store.Stream("PATTY", 1)
	if len(recorded) != 1 || recorded[0].Type != events.LowStockDetectedEvent {
		t.Errorf("Expected one low stock event, got %v", recorded)
	}
}

func TestFanoutSender_JoinsErrors(t *testing.T) {
	ok := &testhelpers.RecordingNotificationService{}
	failing := &testhelpers.RecordingNotificationService{Err: errors.New("smtp down")}
	sender := NewFanoutSender(failing, ok)

	err := sender.SendLowStockAlert(context.Background(), alerts("PATTY"))
	if err == nil || err.Error() != "smtp down" {
		t.Errorf("Expected joined error, got %v", err)
	}
	if len(ok.Alerts()) != 1 {
		t.Error("Expected remaining senders to still receive the batch")
	}
}

// blockingSender holds every delivery until release is closed
type blockingSender struct {
	testhelpers.RecordingNotificationService
	release chan struct{}
}

func (s *blockingSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	<-s.release
	return s.RecordingNotificationService.SendLowStockAlert(ctx, alerts)
}

func TestAsyncSender_DeliversAndDrains(t *testing.T) {
	next := &testhelpers.RecordingNotificationService{}
	sender := NewAsyncSender(next, 4, time.Second, zaptest.NewLogger(t))

	for _, id := range []string{"PATTY", "BUN", "POTATO"} {
		if err := sender.SendLowStockAlert(context.Background(), alerts(id)); err != nil {
			t.Fatalf("SendLowStockAlert failed: %v", err)
		}
	}
	if err := sender.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	delivered := next.Alerts()
	if len(delivered) != 3 || delivered[2].IngredientID != "POTATO" {
		t.Errorf("Expected 3 alerts in order, got %+v", delivered)
	}
	if err := sender.SendLowStockAlert(context.Background(), alerts("LETTUCE")); !errors.Is(err, ErrSenderClosed) {
		t.Errorf("Expected ErrSenderClosed, got %v", err)
	}
}

func TestAsyncSender_KeepsTraceContext(t *testing.T) {
	writer := &fakeWriter{}
	sender := NewAsyncSender(NewKafkaSender(writer, zaptest.NewLogger(t)), 2, time.Second, zaptest.NewLogger(t))

	provider := sdktrace.NewTracerProvider()
	defer func() { _ = provider.Shutdown(context.Background()) }()
	ctx, span := provider.Tracer("test").Start(context.Background(), "submit")
	traceID := span.SpanContext().TraceID().String()

	if err := sender.SendLowStockAlert(ctx, alerts("PATTY")); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}
	span.End()
	if err := sender.SendLowStockAlert(context.Background(), alerts("BUN")); err != nil {
		t.Fatalf("SendLowStockAlert failed: %v", err)
	}
	if err := sender.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if len(writer.messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(writer.messages))
	}
	tracedCarrier := headerCarrier(writer.messages[0].Headers)
	traced := tracedCarrier.Get("traceparent")
	if !strings.Contains(traced, traceID) {
		t.Errorf("Expected traceparent with trace %s, got %q", traceID, traced)
	}
	untracedCarrier := headerCarrier(writer.messages[1].Headers)
	if untraced := untracedCarrier.Get("traceparent"); untraced != "" {
		t.Errorf("Expected no traceparent for an untraced batch, got %q", untraced)
	}
}

func TestAsyncSender_QueueFull(t *testing.T) {
	next := &blockingSender{release: make(chan struct{})}
	sender := NewAsyncSender(next, 1, time.Second, zaptest.NewLogger(t))

	// the worker takes at most one batch off the queue, so one of three must be refused
	var refused int
	for i := 0; i < 3; i++ {
		if err := sender.SendLowStockAlert(context.Background(), alerts("PATTY")); errors.Is(err, ErrQueueFull) {
			refused++
		}
	}
	close(next.release)
	if err := sender.Close(context.Background()); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if refused == 0 {
		t.Error("Expected at least one batch to be refused")
	}
	if got := len(next.Alerts()); got+refused != 3 {
		t.Errorf("Expected delivered plus refused to be 3, got %d+%d", got, refused)
	}
}
