// Package orders persists the order collection the reminder engine reads
// and appends notification records to.
package orders

import (
	"context"

	"payment-reminders/internal/models"
)

// Store reads and writes the whole order collection.
type Store interface {
	LoadOrders(ctx context.Context) ([]models.Order, error)
	SaveOrders(ctx context.Context, orders []models.Order) error
}
