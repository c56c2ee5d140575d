package notify

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer sends one email to each recipient
type Mailer interface {
	Send(to []string, subject, plainText, htmlContent string) error
}

type sender interface {
	Send(email *mail.SGMailV3) (*sendgridResponse, error)
}

// sendgridResponse mirrors the fields of rest.Response the mailer reads
type sendgridResponse struct {
	StatusCode int
	Body       string
}

type sendgridClient struct {
	client *sendgrid.Client
}

func (s sendgridClient) Send(email *mail.SGMailV3) (*sendgridResponse, error) {
	resp, err := s.client.Send(email)
	if err != nil {
		return nil, err
	}
	return &sendgridResponse{StatusCode: resp.StatusCode, Body: resp.Body}, nil
}

// SendGridMailer sends mail through SendGrid
type SendGridMailer struct {
	from   *mail.Email
	client sender
}

// NewSendGridMailer returns a mailer sending as from
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		from:   mail.NewEmail("Mosquito Alert", from),
		client: sendgridClient{client: sendgrid.NewSendClient(apiKey)},
	}
}

// Send implements Mailer. It stops at the first failure.
func (m *SendGridMailer) Send(to []string, subject, plainText, htmlContent string) error {
	for _, addr := range to {
		message := mail.NewSingleEmail(m.from, subject, mail.NewEmail("", addr), plainText, htmlContent)
		response, err := m.client.Send(message)
		if err != nil {
			zap.S().Errorw("failed to send email", "error", err, "to", addr)
			return err
		}
		if response.StatusCode >= 400 {
			zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body, "to", addr)
			return fmt.Errorf("sendgrid error: status %d", response.StatusCode)
		}
		zap.S().Infow("email sent successfully", "to", addr, "subject", subject)
	}
	return nil
}
