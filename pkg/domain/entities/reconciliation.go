package entities

import "time"

// ReconciliationKind tells why an order needs a manual stock check
type ReconciliationKind string

const (
	// ReconciliationCritical marks a persisted order whose deduction failed entirely
	ReconciliationCritical ReconciliationKind = "critical"
	// ReconciliationPartial marks a best-effort order where some lines were not deducted
	ReconciliationPartial ReconciliationKind = "partial"
)

// ReconciliationEntry is one record in the append-only reconciliation log
type ReconciliationEntry struct {
	ID             string             `json:"id"`
	OrderID        string             `json:"order_id"`
	Kind           ReconciliationKind `json:"kind"`
	Reason         string             `json:"reason"`
	Payload        string             `json:"payload,omitempty"`
	TraceID        string             `json:"trace_id,omitempty"`
	SpanID         string             `json:"span_id,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	ResolvedAt     *time.Time         `json:"resolved_at,omitempty"`
	ResolutionNote string             `json:"resolution_note,omitempty"`
}

// IsResolved reports whether someone has checked the order's stock
func (e *ReconciliationEntry) IsResolved() bool {
	return e.ResolvedAt != nil
}
