package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	awsclient "payment-reminders/internal/common/aws"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

// SESSender sends email reminders through Amazon SES.
type SESSender struct {
	client    awsclient.SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESSender(client awsclient.SESService, fromEmail string, log logger.Logger) *SESSender {
	return &SESSender{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"sender": "ses"}),
	}
}

func (s *SESSender) Name() string { return "ses" }

// Send reports sent on acceptance; SES confirms delivery asynchronously.
func (s *SESSender) Send(ctx context.Context, msg Message) (models.NotificationStatus, error) {
	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(msg.Body)},
			},
		},
		Source: aws.String(s.fromEmail),
	})
	if err != nil {
		return models.StatusFailed, fmt.Errorf("ses send: %w", err)
	}

	s.logger.Debug("email accepted", map[string]interface{}{
		"orderId":   msg.OrderID,
		"messageId": aws.ToString(out.MessageId),
	})
	return models.StatusSent, nil
}
