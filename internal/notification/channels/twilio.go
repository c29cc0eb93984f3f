package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"

	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

const whatsAppPrefix = "whatsapp:"

// MessageCreator is the part of the Twilio REST API used here.
type MessageCreator interface {
	CreateMessage(params *api.CreateMessageParams) (*api.ApiV2010Message, error)
}

// TwilioWhatsAppSender delivers messaging reminders over WhatsApp.
type TwilioWhatsAppSender struct {
	api        MessageCreator
	fromNumber string
	logger     logger.Logger
}

// NewTwilioClient builds the REST client. timeout bounds each HTTP request;
// zero keeps the SDK default.
func NewTwilioClient(accountSID, authToken string, timeout time.Duration) *twilio.RestClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

func NewTwilioWhatsAppSender(creator MessageCreator, fromNumber string, log logger.Logger) *TwilioWhatsAppSender {
	return &TwilioWhatsAppSender{
		api:        creator,
		fromNumber: whatsAppAddress(fromNumber),
		logger:     log.WithFields(map[string]interface{}{"sender": "twilio"}),
	}
}

func (s *TwilioWhatsAppSender) Name() string { return "twilio" }

func (s *TwilioWhatsAppSender) Send(ctx context.Context, msg Message) (models.NotificationStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.StatusFailed, err
	}

	params := &api.CreateMessageParams{}
	params.SetBody(msg.Body)
	params.SetFrom(s.fromNumber)
	params.SetTo(whatsAppAddress(msg.To))

	resp, err := s.createMessage(ctx, params)
	if err != nil {
		return models.StatusFailed, fmt.Errorf("twilio send: %w", err)
	}
	if resp == nil || resp.Sid == nil {
		return models.StatusFailed, fmt.Errorf("twilio send: no message sid returned")
	}

	status := mapTwilioStatus(resp.Status)
	if status == models.StatusFailed {
		return status, fmt.Errorf("twilio send: message %s rejected with status %s", *resp.Sid, *resp.Status)
	}

	s.logger.Debug("whatsapp message accepted", map[string]interface{}{
		"orderId": msg.OrderID,
		"sid":     *resp.Sid,
		"status":  string(status),
	})
	return status, nil
}

type createResult struct {
	resp *api.ApiV2010Message
	err  error
}

// createMessage returns when ctx is done even though the SDK call takes no
// context; the abandoned call is still bounded by the client timeout.
func (s *TwilioWhatsAppSender) createMessage(ctx context.Context, params *api.CreateMessageParams) (*api.ApiV2010Message, error) {
	done := make(chan createResult, 1)
	go func() {
		resp, err := s.api.CreateMessage(params)
		done <- createResult{resp: resp, err: err}
	}()

	select {
	case r := <-done:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, whatsAppPrefix) {
		return number
	}
	return whatsAppPrefix + number
}

func mapTwilioStatus(status *string) models.NotificationStatus {
	if status == nil {
		return models.StatusSent
	}
	switch *status {
	case "read":
		return models.StatusSeen
	case "delivered":
		return models.StatusDelivered
	case "failed", "undelivered", "canceled":
		return models.StatusFailed
	default:
		return models.StatusSent
	}
}
