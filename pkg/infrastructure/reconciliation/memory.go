package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
	"github.com/vsinha/fulfillment/pkg/domain/repositories"
)

// MemoryRepository keeps reconciliation entries in process memory
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*entities.ReconciliationEntry
	now     func() time.Time
}

// NewMemoryRepository creates an empty in-memory reconciliation log
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

var _ repositories.ReconciliationRepository = (*MemoryRepository)(nil)

func (r *MemoryRepository) Record(ctx context.Context, entry *entities.ReconciliationEntry) error {
	if err := ctx.Err(); err != nil {
		return entities.NewPersistenceError("record reconciliation entry", err)
	}
	if entry.OrderID == "" {
		return entities.NewValidationError("reconciliation entry requires an order id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	stored := *entry
	r.entries = append(r.entries, &stored)
	return nil
}

func (r *MemoryRepository) ListPending(ctx context.Context) ([]*entities.ReconciliationEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, entities.NewPersistenceError("list reconciliation entries", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]*entities.ReconciliationEntry, 0)
	for _, entry := range r.entries {
		if !entry.IsResolved() {
			copied := *entry
			pending = append(pending, &copied)
		}
	}
	return pending, nil
}

func (r *MemoryRepository) Resolve(ctx context.Context, orderID, note string) error {
	if err := ctx.Err(); err != nil {
		return entities.NewPersistenceError("resolve reconciliation entries", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	resolvedAt := r.now().UTC()
	resolved := 0
	for _, entry := range r.entries {
		if entry.OrderID == orderID && !entry.IsResolved() {
			entry.ResolvedAt = &resolvedAt
			entry.ResolutionNote = note
			resolved++
		}
	}
	if resolved == 0 {
		return entities.NewNotFoundError("no pending reconciliation entries for order %s", orderID)
	}
	return nil
}

// All returns every entry, resolved or not, in record order
func (r *MemoryRepository) All() []*entities.ReconciliationEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*entities.ReconciliationEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		copied := *entry
		all = append(all, &copied)
	}
	return all
}
