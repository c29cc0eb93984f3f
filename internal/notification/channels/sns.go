package channels

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"

	awsclient "payment-reminders/internal/common/aws"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

// SNSSender delivers messaging reminders as SMS through Amazon SNS. It is
// used when WhatsApp delivery is not provisioned.
type SNSSender struct {
	client   awsclient.SNSService
	senderID string
	logger   logger.Logger
}

func NewSNSSender(client awsclient.SNSService, senderID string, log logger.Logger) *SNSSender {
	return &SNSSender{
		client:   client,
		senderID: senderID,
		logger:   log.WithFields(map[string]interface{}{"sender": "sns"}),
	}
}

func (s *SNSSender) Name() string { return "sns" }

func (s *SNSSender) Send(ctx context.Context, msg Message) (models.NotificationStatus, error) {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(msg.To),
		Message:     aws.String(msg.Body),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = snstypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		return models.StatusFailed, fmt.Errorf("sns publish: %w", err)
	}

	s.logger.Debug("sms published", map[string]interface{}{
		"orderId":   msg.OrderID,
		"messageId": aws.ToString(out.MessageId),
	})
	return models.StatusSent, nil
}
