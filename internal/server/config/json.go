package config

import (
	"encoding/json"
	"os"

	"authd/internal/flagx"
	"authd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "15m" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files. After unmarshalling, its non-zero fields are copied
// into the runtime Config struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddr            string         `json:"endpoint_addr"`
	DatabaseDSN             string         `json:"database_dsn"`
	AppDomain               string         `json:"app_domain"`
	SessionTTL              timex.Duration `json:"session_ttl"`
	SessionRefreshThreshold timex.Duration `json:"session_refresh_threshold"`
	VerificationCodeTTL     timex.Duration `json:"verification_code_ttl"`
	ResetTokenTTL           timex.Duration `json:"reset_token_ttl"`
	SMTPHost                string         `json:"smtp_host"`
	SMTPPort                int            `json:"smtp_port"`
	SMTPUser                string         `json:"smtp_user"`
	SMTPPassword            string         `json:"smtp_password"`
	MailFrom                string         `json:"mail_from"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The JSON file path is taken from the -c or -config command-line flags.
// If neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics. Only fields present in the
// file (non-zero after unmarshalling) override the current values.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddr != "" {
		config.EndpointAddr = c.EndpointAddr
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.AppDomain != "" {
		config.AppDomain = c.AppDomain
	}
	if c.SessionTTL != 0 {
		config.SessionTTL = c.SessionTTL.Std()
	}
	if c.SessionRefreshThreshold != 0 {
		config.SessionRefreshThreshold = c.SessionRefreshThreshold.Std()
	}
	if c.VerificationCodeTTL != 0 {
		config.VerificationCodeTTL = c.VerificationCodeTTL.Std()
	}
	if c.ResetTokenTTL != 0 {
		config.ResetTokenTTL = c.ResetTokenTTL.Std()
	}
	if c.SMTPHost != "" {
		config.SMTPHost = c.SMTPHost
	}
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.SMTPUser != "" {
		config.SMTPUser = c.SMTPUser
	}
	if c.SMTPPassword != "" {
		config.SMTPPassword = c.SMTPPassword
	}
	if c.MailFrom != "" {
		config.MailFrom = c.MailFrom
	}
}
