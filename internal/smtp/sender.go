// Package smtp sends a best-effort notification email when a friend request
// or code redemption arrives for a user with no open WebSocket connection.
// Never on the critical path: a failure here is logged and otherwise
// ignored, since the in-band mailbox (friend_pending_snapshot) is the
// durable source of truth.
package smtp

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"github.com/opensignal/signalhub/internal/config"
)

var (
	ErrEmailDisabled     = errors.New("email is disabled, but an email was attempted to be sent")
	ErrInvalidAuthMethod = errors.New("invalid SMTP auth method")
	ErrSendingEmail      = errors.New("error sending email")
)

// Send delivers a plain HTML email through the configured SMTP relay. Callers
// in this subsystem are expected to log and swallow the error rather than
// fail the request that triggered the notification.
func Send(cfg *config.SMTP, toEmail, subject, body string) error {
	if !cfg.Enabled {
		return ErrEmailDisabled
	}

	var auth sasl.Client
	switch cfg.AuthMethod {
	case config.SMTPAuthMethodPlain:
		auth = sasl.NewPlainClient("", cfg.Username, cfg.Password)
	case config.SMTPAuthMethodLogin:
		auth = sasl.NewLoginClient(cfg.Username, cfg.Password)
	case config.SMTPAuthMethodNone:
		auth = nil
	default:
		return ErrInvalidAuthMethod
	}

	msg := strings.NewReader(fmt.Sprintf("From: %s\r\n", cfg.From) +
		fmt.Sprintf("To: %s\r\n", toEmail) +
		fmt.Sprintf("Subject: %s\r\n", subject) +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/html; charset=\"UTF-8\"\r\n" +
		"Content-Transfer-Encoding: 7bit\r\n" +
		"\r\n<html><body>" + body + "</body></html>\r\n",
	)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var err error
	if cfg.TLS == config.SMTPTLSImplicit {
		err = smtp.SendMailTLS(addr, auth, cfg.From, []string{toEmail}, msg)
	} else {
		err = smtp.SendMail(addr, auth, cfg.From, []string{toEmail}, msg)
	}
	if err != nil {
		slog.Error("failed to send notification email", "to", toEmail, "error", err)
		return ErrSendingEmail
	}
	return nil
}

// NotifyFriendRequest sends a best-effort "you have a friend request"
// notification to notifyEmail. A disabled or misconfigured mail relay never
// surfaces an error to the friend-request caller; it's logged here only.
func NotifyFriendRequest(cfg *config.SMTP, notifyEmail, fromDisplayName string) {
	if !cfg.Enabled || notifyEmail == "" {
		return
	}
	subject := "New friend request"
	body := fmt.Sprintf("%s sent you a friend request.", html.EscapeString(fromDisplayName))
	if err := Send(cfg, notifyEmail, subject, body); err != nil {
		slog.Warn("friend request notification email not sent", "error", err)
	}
}
