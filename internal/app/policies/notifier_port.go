package policies

import "context"

// Notification is a templated message for one recipient.
type Notification struct {
	To       string
	Template string
	Data     map[string]any
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
