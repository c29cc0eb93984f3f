package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"payment-reminders/internal/common/database"
	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/models"
)

const storeName = "postgres"

const selectOrdersQuery = `
	SELECT id, order_number, customer_name, email, phone, currency,
	       due_date, financial_status, total_outstanding, notification_log
	FROM orders
	ORDER BY id`

const upsertOrderQuery = `
	INSERT INTO orders (id, order_number, customer_name, email, phone, currency,
	                    due_date, financial_status, total_outstanding, notification_log, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
	ON CONFLICT (id) DO UPDATE SET
	    order_number      = EXCLUDED.order_number,
	    customer_name     = EXCLUDED.customer_name,
	    email             = EXCLUDED.email,
	    phone             = EXCLUDED.phone,
	    currency          = EXCLUDED.currency,
	    due_date          = EXCLUDED.due_date,
	    financial_status  = EXCLUDED.financial_status,
	    total_outstanding = EXCLUDED.total_outstanding,
	    notification_log  = EXCLUDED.notification_log,
	    updated_at        = NOW()`

// PostgresStore keeps one row per order with the notification log in a
// JSONB column.
type PostgresStore struct {
	client *database.PostgresClient
}

func NewPostgresStore(client *database.PostgresClient) *PostgresStore {
	return &PostgresStore{client: client}
}

func (s *PostgresStore) LoadOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.client.DB.QueryContext(ctx, selectOrdersQuery)
	if err != nil {
		return nil, apperrors.NewStorageReadFailedError(storeName, err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var (
			o       models.Order
			dueDate sql.NullTime
			status  string
			logJSON []byte
		)
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.Name, &o.Email, &o.Phone, &o.Currency,
			&dueDate, &status, &o.TotalOutstanding, &logJSON,
		); err != nil {
			return nil, apperrors.NewStorageReadFailedError(storeName, err)
		}
		if dueDate.Valid {
			t := dueDate.Time
			o.DueDate = &t
		}
		o.FinancialStatus = models.FinancialStatus(status)
		if len(logJSON) > 0 {
			if err := json.Unmarshal(logJSON, &o.NotificationLog); err != nil {
				return nil, apperrors.NewStorageReadFailedError(storeName, fmt.Errorf("order %s notification_log: %w", o.ID, err))
			}
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageReadFailedError(storeName, err)
	}
	return orders, nil
}

// SaveOrders upserts every order in a single transaction.
func (s *PostgresStore) SaveOrders(ctx context.Context, orders []models.Order) error {
	err := s.client.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertOrderQuery)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i := range orders {
			o := &orders[i]
			log := o.NotificationLog
			if log == nil {
				log = []models.NotificationRecord{}
			}
			logJSON, err := json.Marshal(log)
			if err != nil {
				return fmt.Errorf("order %s notification_log: %w", o.ID, err)
			}

			var dueDate interface{}
			if o.DueDate != nil {
				dueDate = *o.DueDate
			}

			if _, err := stmt.ExecContext(ctx,
				o.ID, o.OrderNumber, o.Name, o.Email, o.Phone, o.Currency,
				dueDate, string(o.FinancialStatus), o.TotalOutstanding, logJSON,
			); err != nil {
				return fmt.Errorf("upsert order %s: %w", o.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.NewStorageWriteFailedError(storeName, err)
	}
	return nil
}
