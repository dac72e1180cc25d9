package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envOverlay mirrors Config for environment parsing. Variables use the
// AUTHD_ prefix, e.g. AUTHD_DATABASE_DSN or AUTHD_SESSION_TTL=720h.
type envOverlay struct {
	EndpointAddr            string        `envconfig:"ENDPOINT_ADDR"`
	DatabaseDSN             string        `envconfig:"DATABASE_DSN"`
	AppDomain               string        `envconfig:"APP_DOMAIN"`
	SessionTTL              time.Duration `envconfig:"SESSION_TTL"`
	SessionRefreshThreshold time.Duration `envconfig:"SESSION_REFRESH_THRESHOLD"`
	VerificationCodeTTL     time.Duration `envconfig:"VERIFICATION_CODE_TTL"`
	ResetTokenTTL           time.Duration `envconfig:"RESET_TOKEN_TTL"`
	SMTPHost                string        `envconfig:"SMTP_HOST"`
	SMTPPort                int           `envconfig:"SMTP_PORT"`
	SMTPUser                string        `envconfig:"SMTP_USER"`
	SMTPPassword            string        `envconfig:"SMTP_PASSWORD"`
	MailFrom                string        `envconfig:"MAIL_FROM"`
}

// parseEnv overlays configuration values from AUTHD_-prefixed environment
// variables. Unset variables leave the current values untouched.
func parseEnv(config *Config) {

	e := &envOverlay{}
	if err := envconfig.Process("authd", e); err != nil {
		panic(err)
	}

	if e.EndpointAddr != "" {
		config.EndpointAddr = e.EndpointAddr
	}
	if e.DatabaseDSN != "" {
		config.DatabaseDSN = e.DatabaseDSN
	}
	if e.AppDomain != "" {
		config.AppDomain = e.AppDomain
	}
	if e.SessionTTL != 0 {
		config.SessionTTL = e.SessionTTL
	}
	if e.SessionRefreshThreshold != 0 {
		config.SessionRefreshThreshold = e.SessionRefreshThreshold
	}
	if e.VerificationCodeTTL != 0 {
		config.VerificationCodeTTL = e.VerificationCodeTTL
	}
	if e.ResetTokenTTL != 0 {
		config.ResetTokenTTL = e.ResetTokenTTL
	}
	if e.SMTPHost != "" {
		config.SMTPHost = e.SMTPHost
	}
	if e.SMTPPort != 0 {
		config.SMTPPort = e.SMTPPort
	}
	if e.SMTPUser != "" {
		config.SMTPUser = e.SMTPUser
	}
	if e.SMTPPassword != "" {
		config.SMTPPassword = e.SMTPPassword
	}
	if e.MailFrom != "" {
		config.MailFrom = e.MailFrom
	}
}
