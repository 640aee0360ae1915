// Package notify sends completion notifications when a sync attempt reaches
// a terminal status.
package notify

import (
	"fmt"
	"log"
	"os"

	"github.com/EastAgile/airbyte/internal/attempt"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type EmailNotifier struct {
	fromName    string
	fromAddress string
	toAddress   string
	apiKey      string

	send func(email *mail.SGMailV3) (*rest.Response, error)
}

// NewEmailNotifierFromEnv builds a notifier from environment configuration.
// Without EMAIL_API_KEY and NOTIFY_ADDRESS the notifier is disabled and
// every notification becomes a no-op.
func NewEmailNotifierFromEnv() *EmailNotifier {
	n := &EmailNotifier{
		fromName:    os.Getenv("FROM_NAME"),
		fromAddress: os.Getenv("FROM_ADDRESS"),
		toAddress:   os.Getenv("NOTIFY_ADDRESS"),
		apiKey:      os.Getenv("EMAIL_API_KEY"),
	}
	n.send = func(email *mail.SGMailV3) (*rest.Response, error) {
		client := sendgrid.NewSendClient(n.apiKey)
		return client.Send(email)
	}

	return n
}

func (n *EmailNotifier) Enabled() bool {
	return n.apiKey != "" && n.toAddress != ""
}

// NotifyAttemptFinished emails a summary of a finished attempt.
func (n *EmailNotifier) NotifyAttemptFinished(a *attempt.Attempt) error {
	if !n.Enabled() {
		return nil
	}

	subject, body := composeMessage(a)

	from := mail.NewEmail(n.fromName, n.fromAddress)
	to := mail.NewEmail("", n.toAddress)
	email := mail.NewSingleEmail(from, subject, to, body, body)

	response, err := n.send(email)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
	}

	log.Printf("Notification sent for attempt %s (status: %d)", a.ID, response.StatusCode)
	return nil
}

func composeMessage(a *attempt.Attempt) (subject, body string) {
	subject = fmt.Sprintf("Sync %s: job %s", a.Status, a.JobID)

	records := "unknown"
	if a.TotalStats != nil && a.TotalStats.RecordsEmitted != nil {
		records = fmt.Sprintf("%d", *a.TotalStats.RecordsEmitted)
	}

	body = fmt.Sprintf(
		"Attempt %s for job %s finished with status %s after %s. Records synced: %s.",
		a.ID, a.JobID, a.Status, a.Duration(), records,
	)
	return subject, body
}
