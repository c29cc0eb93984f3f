package main

import (
	"context"
	"fmt"

	awsclient "payment-reminders/internal/common/aws"
	"payment-reminders/internal/common/config"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
	"payment-reminders/internal/notification/channels"
)

// buildSenders maps each channel to the transport named by its provider.
func buildSenders(ctx context.Context, cfg *config.Config, log logger.Logger) (map[models.Channel]channels.Sender, error) {
	senders := make(map[models.Channel]channels.Sender, 2)

	switch cfg.Channels.Email.Provider {
	case "ses":
		client, err := awsclient.NewSESClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		senders[models.ChannelEmail] = channels.NewSESSender(client, cfg.Channels.Email.FromEmail, log)
	case "console":
		senders[models.ChannelEmail] = channels.NewConsoleSender(models.ChannelEmail, log)
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Channels.Email.Provider)
	}

	switch cfg.Channels.WhatsApp.Provider {
	case "twilio":
		client := channels.NewTwilioClient(cfg.Integrations.Twilio.AccountSID, cfg.Integrations.Twilio.AuthToken,
			config.GetDuration(cfg.Notifications.SendTimeoutMs))
		senders[models.ChannelWhatsApp] = channels.NewTwilioWhatsAppSender(client.Api, cfg.Channels.WhatsApp.FromNumber, log)
	case "sns":
		client, err := awsclient.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		senders[models.ChannelWhatsApp] = channels.NewSNSSender(client, cfg.Integrations.AWS.SNS.SenderID, log)
	case "console":
		senders[models.ChannelWhatsApp] = channels.NewConsoleSender(models.ChannelWhatsApp, log)
	default:
		return nil, fmt.Errorf("unknown whatsapp provider %q", cfg.Channels.WhatsApp.Provider)
	}

	return senders, nil
}
