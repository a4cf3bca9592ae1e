package events

import (
	"go.uber.org/zap"
)

// LogEvents returns a handler that writes each event as a structured debug line
func LogEvents(logger *zap.Logger) Handler {
	logger = logger.Named("events")
	return func(event Event) error {
		fields := []zap.Field{
			zap.String("event_type", event.Type),
			zap.String("stream_id", event.StreamID),
			zap.Int("version", event.Version),
			zap.Int("position", event.Position),
			zap.Any("data", event.Data),
		}
		if event.TraceID != "" {
			fields = append(fields, zap.String("trace_id", event.TraceID))
		}
		logger.Debug("event", fields...)
		return nil
	}
}
