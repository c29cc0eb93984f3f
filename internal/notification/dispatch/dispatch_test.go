package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
	"payment-reminders/internal/notification/channels"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg channels.Message) (models.NotificationStatus, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.NotificationStatus), args.Error(1)
}

func (m *MockSender) Name() string { return "mock" }

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func testSettings() *models.NotificationSettings {
	return &models.NotificationSettings{
		DueReminderDays:     3,
		MaxOverdueReminders: 3,
		Channels: map[models.Channel]models.ChannelSettings{
			models.ChannelEmail:    {Enabled: true},
			models.ChannelWhatsApp: {Enabled: true},
		},
		Templates: map[models.Channel]map[models.NotificationType]models.MessageTemplate{
			models.ChannelEmail: {
				models.TypeDueReminder: {
					Subject: "Order {{order_number}} due",
					Body:    "Hi {{customer_name}}, {{amount_due}} due {{due_date}}. {{payment_link}} - {{store_name}}",
				},
			},
			models.ChannelWhatsApp: {
				models.TypeDueReminder: {Body: "{{customer_name}}: {{amount_due}}"},
			},
		},
	}
}

func testOrder() *models.Order {
	due := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:               "o-1",
		OrderNumber:      "#1001",
		Name:             "Ann Lee",
		Email:            "ann@example.com",
		Phone:            "+15552223333",
		DueDate:          &due,
		FinancialStatus:  models.FinancialStatusPending,
		TotalOutstanding: decimal.RequireFromString("125.5"),
	}
}

func newTestDispatcher(t *testing.T, senders map[models.Channel]channels.Sender) *Dispatcher {
	return New(Config{
		StoreName:           "Your Store",
		CurrencySymbol:      "$",
		DateLayout:          "1/2/2006",
		PaymentLinkTemplate: "https://yourstore.com/pay/{{order_id}}",
		Location:            time.UTC,
		SendTimeout:         time.Second,
	}, senders, logger.NewTestLogger(t),
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func() string { return "n-1" }),
	)
}

func TestDispatcher_SendEmail(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, channels.Message{
		OrderID: "o-1",
		To:      "ann@example.com",
		Subject: "Order #1001 due",
		Body:    "Hi Ann Lee, $125.50 due 3/12/2024. https://yourstore.com/pay/o-1 - Your Store",
	}).Return(models.StatusSent, nil)

	d := newTestDispatcher(t, map[models.Channel]channels.Sender{models.ChannelEmail: sender})
	rec, err := d.Send(context.Background(), testOrder(), models.TypeDueReminder, models.ChannelEmail, testSettings())

	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "n-1", rec.ID)
	assert.Equal(t, models.StatusSent, rec.Status)
	assert.Equal(t, fixedNow, rec.Timestamp)
	assert.Equal(t, "Order #1001 due", rec.Subject)
	assert.Equal(t, "ann@example.com", rec.Recipient)
	assert.Empty(t, rec.Error)
	sender.AssertExpectations(t)
}

func TestDispatcher_WhatsAppHasNoSubject(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m channels.Message) bool {
		return m.Subject == "" && m.To == "+15552223333" && m.Body == "Ann Lee: $125.50"
	})).Return(models.StatusSeen, nil)

	d := newTestDispatcher(t, map[models.Channel]channels.Sender{models.ChannelWhatsApp: sender})
	rec, err := d.Send(context.Background(), testOrder(), models.TypeDueReminder, models.ChannelWhatsApp, testSettings())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSeen, rec.Status)
	assert.Empty(t, rec.Subject)
}

func TestDispatcher_EmailNeverReportsSeen(t *testing.T) {
	sender := &MockSender{}
	sender.On("Send", mock.Anything, mock.Anything).Return(models.StatusSeen, nil)

	d := newTestDispatcher(t, map[models.Channel]channels.Sender{models.ChannelEmail: sender})
	rec, err := d.Send(context.Background(), testOrder(), models.TypeDueReminder, models.ChannelEmail, testSettings())

	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, rec.Status)
}

func TestDispatcher_DisabledChannel(t *testing.T) {
	settings := testSettings()
	settings.Channels[models.ChannelWhatsApp] = models.ChannelSettings{Enabled: false}

	d := newTestDispatcher(t, nil)

	rec, err := d.Send(context.Background(), testOrder(), models.TypeDueReminder, models.ChannelWhatsApp, settings)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrChannelDisabled)

	rec, err = d.Send(context.Background(), testOrder(), models.TypeDueReminder, models.Channel("sms"), settings)
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, apperrors.ErrChannelDisabled)
}

func TestDispatcher_FailedRecords(t *testing.T) {
	tests := []struct {
		name     string
		typ      models.NotificationType
		order    func() *models.Order
		sender   func() *MockSender
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "missing template",
			typ:      models.TypeOverdueReminder,
			order:    testOrder,
			sender:   func() *MockSender { return &MockSender{} },
			wantCode: apperrors.ErrCodeTemplateNotFound,
		},
		{
			name: "missing recipient",
			typ:  models.TypeDueReminder,
			order: func() *models.Order {
				o := testOrder()
				o.Email = ""
				return o
			},
			sender:   func() *MockSender { return &MockSender{} },
			wantCode: apperrors.ErrCodeRecipientMissing,
		},
		{
			name:  "transport error",
			typ:   models.TypeDueReminder,
			order: testOrder,
			sender: func() *MockSender {
				s := &MockSender{}
				s.On("Send", mock.Anything, mock.Anything).Return(models.StatusFailed, errors.New("smtp down"))
				return s
			},
			wantCode: apperrors.ErrCodeNotificationSendFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := tt.sender()
			d := newTestDispatcher(t, map[models.Channel]channels.Sender{models.ChannelEmail: sender})

			rec, err := d.Send(context.Background(), tt.order(), tt.typ, models.ChannelEmail, testSettings())

			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, models.StatusFailed, rec.Status)
			assert.True(t, rec.Failed())
			assert.Contains(t, rec.Error, string(tt.wantCode))
			assert.Equal(t, "n-1", rec.ID)
			sender.AssertExpectations(t)
		})
	}
}

func TestDispatcher_TemplateData_NoDueDate(t *testing.T) {
	d := newTestDispatcher(t, nil)
	o := testOrder()
	o.DueDate = nil

	data := d.TemplateData(o)
	assert.Equal(t, "", data[VarDueDate])
	assert.Equal(t, "$125.50", data[VarAmountDue])
	assert.ElementsMatch(t, Variables(), keys(data))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
