package integration

import (
	"context"

	"go.uber.org/zap"
)

// EventType classifies a progress event.
type EventType string

const (
	EventError    EventType = "error"
	EventProgress EventType = "progress"
)

// Event scopes
const (
	ScopeProduct   = "product"
	ScopeVariation = "variation"
	ScopeBatch     = "batch"
)

// ProgressEvent is emitted by the inventory push engine while it runs.
type ProgressEvent struct {
	Type      EventType `json:"type"`
	Scope     string    `json:"scope"`
	SKU       string    `json:"sku,omitempty"`
	Message   string    `json:"message"`
	Processed int       `json:"processed,omitempty"`
}

// EventSink receives progress events. Implementations must not block for
// long; the engine waits for Emit to return.
type EventSink interface {
	Emit(ctx context.Context, event ProgressEvent)
}

// LoggingEventSink writes events to a zap logger.
type LoggingEventSink struct {
	logger *zap.Logger
}

// NewLoggingEventSink creates a sink logging to logger.
func NewLoggingEventSink(logger *zap.Logger) *LoggingEventSink {
	return &LoggingEventSink{logger: logger}
}

// Emit logs errors at warn level and progress at info level.
func (s *LoggingEventSink) Emit(_ context.Context, event ProgressEvent) {
	fields := []zap.Field{
		zap.String("scope", event.Scope),
		zap.String("sku", event.SKU),
	}
	if event.Type == EventError {
		s.logger.Warn(event.Message, fields...)
		return
	}
	s.logger.Info(event.Message, append(fields, zap.Int("processed", event.Processed))...)
}

type nopEventSink struct{}

func (nopEventSink) Emit(context.Context, ProgressEvent) {}
