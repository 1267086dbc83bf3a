package notify

import (
	"context"
	"log/slog"
	"strings"

	"stayly/internal/app/policies"
)

// LogNotifier writes notifications to the log instead of sending email.
type LogNotifier struct {
	Logger *slog.Logger
	// Redact hides template data such as login codes outside dev.
	Redact bool
}

func (n LogNotifier) Send(ctx context.Context, msg policies.Notification) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"to", maskEmail(msg.To), "template", msg.Template}
	if !n.Redact {
		attrs = append(attrs, "data", msg.Data)
	}
	logger.InfoContext(ctx, "notification sent", attrs...)
	return nil
}

func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return email
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

var _ policies.Notifier = LogNotifier{}
