package mail

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"authd/internal/server/config"
)

// SMTPSender implements Sender over a plain SMTP connection.
type SMTPSender struct {
	host     string
	port     int
	user     string
	password string
	from     string

	// send is a seam for testing; defaults to dialing the configured host.
	send func(m *gomail.Message) error
}

// NewSMTPSender constructs an SMTPSender from server config.
func NewSMTPSender(cfg *config.Config) *SMTPSender {
	s := &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     cfg.MailFrom,
	}
	s.send = func(m *gomail.Message) error {
		d := gomail.NewDialer(s.host, s.port, s.user, s.password)
		return d.DialAndSend(m)
	}
	return s
}

// SendConfirmEmail delivers the verification code to the address being
// confirmed.
func (s *SMTPSender) SendConfirmEmail(ctx context.Context, email, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(s.confirmMessage(email, code))
}

// SendResetPasswordEmail delivers the password-reset link.
func (s *SMTPSender) SendResetPasswordEmail(ctx context.Context, email, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.send(s.resetMessage(email, link))
}

func (s *SMTPSender) confirmMessage(email, code string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Verify your email address")
	m.SetBody("text/plain", fmt.Sprintf("Your verification code is: %s\n\nThis code expires in 15 minutes.", code))
	return m
}

func (s *SMTPSender) resetMessage(email, link string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", "Reset your password")
	m.SetBody("text/plain", fmt.Sprintf("Follow this link to reset your password:\n\n%s\n\nThis link expires in 2 hours.", link))
	return m
}

var _ Sender = (*SMTPSender)(nil)
