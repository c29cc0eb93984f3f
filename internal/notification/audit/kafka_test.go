package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, logger.NewTestLogger(t))

	order := &models.Order{ID: "o-1", OrderNumber: "#1001", Name: "Ann"}
	rec := models.NotificationRecord{
		ID: "n-1", Type: models.TypeDueReminder, Channel: models.ChannelEmail,
		Status: models.StatusSent, Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	require.NoError(t, p.Publish(context.Background(), order, rec))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "o-1", string(msg.Key))
	assert.Empty(t, msg.Topic)

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "#1001", ev.OrderNumber)
	assert.Equal(t, "n-1", ev.Record.ID)
	assert.Equal(t, models.StatusSent, ev.Record.Status)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewKafkaPublisher(w, logger.NewNoOpLogger())

	err := p.Publish(context.Background(), &models.Order{ID: "o-1"}, models.NotificationRecord{ID: "n-1"})
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"localhost:9092"}, "notification-log", logger.NewNoOpLogger())
	assert.Equal(t, "notification-log", w.Topic)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
