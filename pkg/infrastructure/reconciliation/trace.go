// Package reconciliation keeps an append-only log of orders whose stock has to be checked
// by hand: persisted orders whose deduction failed, and best-effort orders with failed lines.
package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// TraceInfo holds the OTel identifiers extracted from a context
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active span from ctx. Both fields are empty without one.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds a pending entry stamped with the trace of ctx
func NewEntry(ctx context.Context, orderID string, kind entities.ReconciliationKind, reason, payload string) *entities.ReconciliationEntry {
	ti := ExtractTraceInfo(ctx)
	return &entities.ReconciliationEntry{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Kind:      kind,
		Reason:    reason,
		Payload:   payload,
		TraceID:   ti.TraceID,
		SpanID:    ti.SpanID,
		CreatedAt: time.Now().UTC(),
	}
}
