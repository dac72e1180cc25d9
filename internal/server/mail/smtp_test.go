package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"authd/internal/server/config"
)

func newTestSender(t *testing.T) (*SMTPSender, *[]*gomail.Message) {
	t.Helper()
	cfg := &config.Config{
		SMTPHost: "smtp.test.local",
		SMTPPort: 587,
		MailFrom: "no-reply@test.local",
	}
	s := NewSMTPSender(cfg)
	var sent []*gomail.Message
	s.send = func(m *gomail.Message) error {
		sent = append(sent, m)
		return nil
	}
	return s, &sent
}

func TestSendConfirmEmail_BuildsMessage(t *testing.T) {
	s, sent := newTestSender(t)

	require.NoError(t, s.SendConfirmEmail(context.Background(), "user@test.local", "12345678"))
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, []string{"no-reply@test.local"}, m.GetHeader("From"))
	assert.Equal(t, []string{"user@test.local"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Verify your email address"}, m.GetHeader("Subject"))
}

func TestSendResetPasswordEmail_BuildsMessage(t *testing.T) {
	s, sent := newTestSender(t)

	link := "https://app.test.local/reset-password?token=abc"
	require.NoError(t, s.SendResetPasswordEmail(context.Background(), "user@test.local", link))
	require.Len(t, *sent, 1)

	m := (*sent)[0]
	assert.Equal(t, []string{"user@test.local"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Reset your password"}, m.GetHeader("Subject"))
}

func TestSend_PropagatesDialError(t *testing.T) {
	s, _ := newTestSender(t)
	s.send = func(m *gomail.Message) error { return errors.New("dial tcp: refused") }

	assert.Error(t, s.SendConfirmEmail(context.Background(), "user@test.local", "12345678"))
}

func TestSend_CanceledContext(t *testing.T) {
	s, sent := newTestSender(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.SendConfirmEmail(ctx, "user@test.local", "12345678"))
	assert.Empty(t, *sent)
}
