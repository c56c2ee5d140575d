package notify

import (
	"errors"
	"testing"

	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) Send(email *mail.SGMailV3) (*sendgridResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	return &sendgridResponse{StatusCode: f.status}, nil
}

func TestSendGridMailerSend(t *testing.T) {
	fake := &fakeSender{status: 202}
	m := &SendGridMailer{from: mail.NewEmail("Mosquito Alert", "no-reply@example.com"), client: fake}

	err := m.Send([]string{"a@example.com", "b@example.com"}, "Daily digest", "plain", "<p>html</p>")

	assert.NoError(t, err)
	assert.Len(t, fake.sent, 2)
	assert.Equal(t, "Daily digest", fake.sent[0].Subject)
}

func TestSendGridMailerErrors(t *testing.T) {
	m := &SendGridMailer{from: mail.NewEmail("", "x@example.com"), client: &fakeSender{status: 401}}
	assert.EqualError(t, m.Send([]string{"a@example.com"}, "s", "p", "h"), "sendgrid error: status 401")

	m.client = &fakeSender{err: errors.New("dial tcp: timeout")}
	assert.EqualError(t, m.Send([]string{"a@example.com"}, "s", "p", "h"), "dial tcp: timeout")
}
