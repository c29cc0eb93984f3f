// Package audit streams every persisted notification record to Kafka.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

// MessageWriter is the part of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON payload published per record.
type Event struct {
	OrderID      string                    `json:"orderId"`
	OrderNumber  string                    `json:"orderNumber"`
	CustomerName string                    `json:"customerName"`
	Record       models.NotificationRecord `json:"record"`
	PublishedAt  time.Time                 `json:"publishedAt"`
}

type KafkaPublisher struct {
	writer MessageWriter
	logger logger.Logger
}

// NewKafkaWriter builds a writer bound to topic.
func NewKafkaWriter(brokers []string, topic string, log logger.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Warn(fmt.Sprintf(msg, args...), map[string]interface{}{"kafka_component": "producer"})
		}),
	}
}

func NewKafkaPublisher(writer MessageWriter, log logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: log.WithFields(map[string]interface{}{"component": "audit"}),
	}
}

// Publish writes one event keyed by order id so an order's records stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, order *models.Order, record models.NotificationRecord) error {
	payload, err := json.Marshal(Event{
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		CustomerName: order.Name,
		Record:       record,
		PublishedAt:  time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(record.Type)},
			{Key: "status", Value: []byte(record.Status)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to produce audit event: %w", err)
	}

	p.logger.Debug("Produced audit event", map[string]interface{}{
		"orderId":        order.ID,
		"notificationId": record.ID,
	})
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}
	return nil
}
