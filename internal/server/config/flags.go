package config

import (
	"flag"
	"os"
	"time"

	"authd/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-o string   app domain used in password-reset links
//	-t int      session validity, hours
//	-f int      session refresh threshold, hours
//	-v int      verification code validity, minutes
//	-r int      reset token validity, minutes
//	-m string   SMTP host
//	-p int      SMTP port
//	-u string   SMTP user
//	-w string   SMTP password
//	-e string   mail From address
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and then converted to
//     time.Duration values.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-o", "-t", "-f", "-v", "-r", "-m", "-p", "-u", "-w", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AppDomain, "o", config.AppDomain, "app domain for reset links")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Hours()), "session validity (in hours)")
	refreshThreshold := fs.Int("f", int(config.SessionRefreshThreshold.Hours()), "session refresh threshold (in hours)")
	codeTTL := fs.Int("v", int(config.VerificationCodeTTL.Minutes()), "verification code validity (in minutes)")
	resetTTL := fs.Int("r", int(config.ResetTokenTTL.Minutes()), "reset token validity (in minutes)")

	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "u", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "w", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.MailFrom, "e", config.MailFrom, "mail From address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Hour
	config.SessionRefreshThreshold = time.Duration(*refreshThreshold) * time.Hour
	config.VerificationCodeTTL = time.Duration(*codeTTL) * time.Minute
	config.ResetTokenTTL = time.Duration(*resetTTL) * time.Minute
}
