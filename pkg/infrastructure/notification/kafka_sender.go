// Package notification delivers low-stock alerts to kafka, the log and the event store.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/services"
)

const lowStockEventType = "inventory.low_stock"

// MessageWriter is the part of *kafka.Writer the sender needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// LowStockMessage is the kafka payload for one alert
type LowStockMessage struct {
	Type   string                 `json:"type"`
	Alert  entities.LowStockAlert `json:"alert"`
	SentAt time.Time              `json:"sent_at"`
}

// KafkaSender publishes one message per alert, keyed by ingredient id so alerts for the
// same ingredient stay ordered within a partition
type KafkaSender struct {
	writer     MessageWriter
	propagator propagation.TextMapPropagator
	logger     *zap.Logger
	now        func() time.Time
}

var _ services.NotificationService = (*KafkaSender)(nil)

// NewKafkaWriter builds a writer for topic on the given brokers
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
}

func NewKafkaSender(writer MessageWriter, logger *zap.Logger) *KafkaSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSender{
		writer:     writer,
		propagator: propagation.TraceContext{},
		logger:     logger.Named("kafka_sender"),
		now:        time.Now,
	}
}

func (s *KafkaSender) SendLowStockAlert(ctx context.Context, alerts []entities.LowStockAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(alerts))
	for _, alert := range alerts {
		payload, err := json.Marshal(LowStockMessage{Type: lowStockEventType, Alert: alert, SentAt: s.now().UTC()})
		if err != nil {
			return fmt.Errorf("encode low stock alert for %s: %w", alert.IngredientID, err)
		}

		headers := headerCarrier{{Key: "event-type", Value: []byte(lowStockEventType)}}
		s.propagator.Inject(ctx, &headers)

		msgs = append(msgs, kafka.Message{
			Key:     []byte(alert.IngredientID),
			Value:   payload,
			Headers: headers,
		})
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.logger.Error("failed to publish low stock alerts", zap.Int("alerts", len(alerts)), zap.Error(err))
		return fmt.Errorf("publish low stock alerts: %w", err)
	}
	s.logger.Debug("published low stock alerts", zap.Int("alerts", len(alerts)))
	return nil
}

func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

// headerCarrier carries trace context in kafka message headers
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c))
	for _, h := range *c {
		keys = append(keys, h.Key)
	}
	return keys
}
