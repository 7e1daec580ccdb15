package controller

import (
	"fmt"
	"log/slog"

	mailjet "github.com/mailjet/mailjet-apiv3-go"
)

// sendEmail delivers a transactional mail via Mailjet. Outside of production
// mode the mail is only logged, so development runs never reach the API.
func (ctrl *controller) sendEmail(logger *slog.Logger, toEmail, toName, subject, textBody string) error {
	cfg := ctrl.model.Config
	if cfg.Mode != "production" {
		logger.Info("email suppressed outside production",
			"to", toEmail, "subject", subject)
		return nil
	}
	if cfg.MailAPIKey == "" || cfg.MailSecret == "" {
		return fmt.Errorf("mail credentials not configured")
	}

	client := mailjet.NewMailjetClient(cfg.MailAPIKey, cfg.MailSecret)
	messages := mailjet.MessagesV31{
		Info: []mailjet.InfoMessagesV31{{
			From: &mailjet.RecipientV31{
				Email: cfg.MailSender,
			},
			To: &mailjet.RecipientsV31{
				{Email: toEmail, Name: toName},
			},
			Subject:  subject,
			TextPart: textBody,
		}},
	}
	if _, err := client.SendMailV31(&messages); err != nil {
		return fmt.Errorf("cannot send email to %s: %w", toEmail, err)
	}
	logger.Info("email sent", "to", toEmail, "subject", subject)
	return nil
}
