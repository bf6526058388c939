// internal/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// ErrDelivery wraps transport failures so callers can treat them as
// non-fatal per recipient.
var ErrDelivery = errors.New("delivery failed")

// Notifier sends a message to one address. Fire-and-forget: callers log
// failures but do not retry.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// LogNotifier writes notifications to the log instead of delivering them.
// Used when no SMTP server is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) Send(ctx context.Context, address, subject, body string) error {
	n.Log.Info("notification", "to", address, "subject", subject, "body", body)
	return nil
}

// SMTPNotifier delivers notifications over plain SMTP.
type SMTPNotifier struct {
	Addr string // host:port
	From string
}

func (n *SMTPNotifier) Send(ctx context.Context, address, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + n.From,
		"To: " + address,
		"Subject: " + subject,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(n.Addr, nil, n.From, []string{address}, []byte(msg)); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}
