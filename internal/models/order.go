// internal/models/order.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FinancialStatus string

const (
	FinancialStatusPending       FinancialStatus = "pending"
	FinancialStatusPartiallyPaid FinancialStatus = "partially_paid"
	FinancialStatusPaid          FinancialStatus = "paid"
	FinancialStatusRefunded      FinancialStatus = "refunded"
)

type Order struct {
	ID               string               `json:"id"`
	OrderNumber      string               `json:"orderNumber"`
	Name             string               `json:"name"`
	Email            string               `json:"email,omitempty"`
	Phone            string               `json:"phone,omitempty"`
	Currency         string               `json:"currency,omitempty"`
	DueDate          *time.Time           `json:"dueDate,omitempty"`
	FinancialStatus  FinancialStatus      `json:"financialStatus"`
	TotalOutstanding decimal.Decimal      `json:"totalOutstanding"`
	NotificationLog  []NotificationRecord `json:"notificationLog,omitempty"`
}

// HasBalance reports whether the order still owes money. Paid orders and
// orders with nothing outstanding never receive reminders.
func (o *Order) HasBalance() bool {
	if o.FinancialStatus == FinancialStatusPaid {
		return false
	}
	return o.TotalOutstanding.IsPositive()
}

// FindOrder returns the index of the order with the given id, or -1.
func FindOrder(orders []Order, id string) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}
