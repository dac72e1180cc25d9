// Package mail defines the email-sending capability used by the auth
// flows and its SMTP implementation. The orchestrator only depends on the
// Sender interface and stays agnostic of the transport.
package mail

import "context"

// Sender delivers account emails. Implementations report delivery failure
// through the returned error; callers surface it as common.ErrEmailSend.
type Sender interface {
	// SendConfirmEmail delivers the verification code to the address being
	// confirmed.
	SendConfirmEmail(ctx context.Context, email, code string) error

	// SendResetPasswordEmail delivers the password-reset link.
	SendResetPasswordEmail(ctx context.Context, email, link string) error
}
