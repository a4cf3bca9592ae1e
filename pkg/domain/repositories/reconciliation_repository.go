package repositories

import (
	"context"

	"github.com/vsinha/fulfillment/pkg/domain/entities"
)

// ReconciliationRepository stores orders whose stock needs manual verification
type ReconciliationRepository interface {
	Record(ctx context.Context, entry *entities.ReconciliationEntry) error
	ListPending(ctx context.Context) ([]*entities.ReconciliationEntry, error)
	// Resolve marks every pending entry of the order as resolved
	Resolve(ctx context.Context, orderID, note string) error
}
