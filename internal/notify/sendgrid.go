// Package notify delivers report outcome emails through SendGrid.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/bagaart/TaskFlow/internal/models"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

var ErrNotConfigured = errors.New("email delivery is not configured")

type Sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type SendGridNotifier struct {
	sender      Sender
	fromName    string
	fromAddress string
}

// NewSendGridNotifier returns ErrNotConfigured when the API key or sender address is empty.
func NewSendGridNotifier(apiKey, fromName, fromAddress string) (*SendGridNotifier, error) {
	if apiKey == "" || fromAddress == "" {
		return nil, ErrNotConfigured
	}
	return NewNotifierWithSender(sendgrid.NewSendClient(apiKey), fromName, fromAddress), nil
}

func NewNotifierWithSender(sender Sender, fromName, fromAddress string) *SendGridNotifier {
	return &SendGridNotifier{sender: sender, fromName: fromName, fromAddress: fromAddress}
}

func (n *SendGridNotifier) ReportFinished(ctx context.Context, rep *models.Report, recipient *models.User) error {
	subject, body := reportMessage(rep)

	from := mail.NewEmail(n.fromName, n.fromAddress)
	to := mail.NewEmail(recipient.Name, recipient.Email)
	email := mail.NewSingleEmail(from, subject, to, body, body)

	response, err := n.sender.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	log.Printf("[Report %d] Email sent to %s (status: %d)", rep.ID, recipient.Email, response.StatusCode)
	return nil
}

func reportMessage(rep *models.Report) (string, string) {
	switch rep.Status {
	case models.ReportCompleted:
		subject := fmt.Sprintf("Report #%d is ready", rep.ID)
		body := fmt.Sprintf("Your %s report (%s) finished and is available for download from the reports dashboard.", rep.Type, rep.Format)
		return subject, body
	case models.ReportFailed:
		reason := "unknown error"
		if rep.ErrorMessage != nil {
			reason = *rep.ErrorMessage
		}
		subject := fmt.Sprintf("Report #%d failed", rep.ID)
		body := fmt.Sprintf("Your %s report (%s) could not be generated: %s", rep.Type, rep.Format, reason)
		return subject, body
	default:
		return fmt.Sprintf("Report #%d is %s", rep.ID, rep.Status), fmt.Sprintf("Your %s report (%s) is %s.", rep.Type, rep.Format, rep.Status)
	}
}
