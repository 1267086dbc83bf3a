package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"stayly/internal/app/policies"
	domainuser "stayly/internal/domain/user"
)

// Envelope is the CloudEvents JSON form the outbox worker publishes.
type Envelope struct {
	ID     string          `json:"id"`
	Type   string          `json:"type"`
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: decode envelope: %v", ErrMalformedEvent, err)
	}
	if env.ID == "" || env.Type == "" {
		return Envelope{}, ErrMalformedEvent
	}
	return env, nil
}

// Inbox records processed event ids. An id is marked only after every
// notification for it was sent, so a failed event is handled again on redelivery.
type Inbox interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

var ErrMalformedEvent = errors.New("notifications: malformed event")

type bookingData struct {
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	GuestID    string `json:"guest_id"`
	HostID     string `json:"host_id"`
	Reason     string `json:"reason"`
	By         string `json:"by"`
	Refund     struct {
		Amount   string `json:"Amount"`
		Currency string `json:"Currency"`
	} `json:"refund"`
}

// Handler turns booking events into guest and host notifications.
type Handler struct {
	Inbox    Inbox
	Notifier policies.Notifier
	Users    domainuser.Repository
	Logger   *slog.Logger
}

func (h *Handler) Handle(ctx context.Context, env Envelope) error {
	if h.Notifier == nil {
		return errors.New("notifications: notifier required")
	}
	name := strings.TrimSuffix(env.Type, ".v1")
	if !strings.HasPrefix(name, "booking.") {
		return nil
	}
	if h.Inbox != nil {
		done, err := h.Inbox.Processed(ctx, env.ID)
		if err != nil {
			return err
		}
		if done {
			h.logger().DebugContext(ctx, "duplicate event skipped", "event_id", env.ID, "type", env.Type)
			return nil
		}
	}
	var data bookingData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	for _, n := range h.plan(name, data) {
		n.To = h.resolveEmail(ctx, n.To)
		if n.To == "" {
			continue
		}
		if err := h.Notifier.Send(ctx, n); err != nil {
			return fmt.Errorf("notify %s: %w", n.Template, err)
		}
	}
	if h.Inbox != nil {
		if err := h.Inbox.MarkProcessed(ctx, env.ID); err != nil {
			return fmt.Errorf("notifications: mark processed: %w", err)
		}
	}
	return nil
}

func (h *Handler) plan(name string, d bookingData) []policies.Notification {
	payload := map[string]any{"booking_id": d.BookingID, "property_id": d.PropertyID}
	switch name {
	case "booking.requested":
		return []policies.Notification{
			{To: d.HostID, Template: "host_booking_requested", Data: payload},
			{To: d.GuestID, Template: "guest_booking_received", Data: payload},
		}
	case "booking.confirmed":
		return []policies.Notification{{To: d.GuestID, Template: "guest_booking_confirmed", Data: payload}}
	case "booking.rejected":
		payload["reason"] = d.Reason
		return []policies.Notification{{To: d.GuestID, Template: "guest_booking_rejected", Data: payload}}
	case "booking.cancelled":
		payload["reason"] = d.Reason
		payload["cancelled_by"] = d.By
		payload["refund"] = strings.TrimSpace(d.Refund.Amount + " " + d.Refund.Currency)
		return []policies.Notification{
			{To: d.GuestID, Template: "guest_booking_cancelled", Data: payload},
			{To: d.HostID, Template: "host_booking_cancelled", Data: payload},
		}
	default:
		return nil
	}
}

func (h *Handler) resolveEmail(ctx context.Context, userID string) string {
	if userID == "" || h.Users == nil {
		return userID
	}
	u, err := h.Users.ByID(ctx, domainuser.ID(userID))
	if err != nil {
		h.logger().WarnContext(ctx, "notification recipient lookup failed", "user_id", userID, "error", err)
		return userID
	}
	return u.Email
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
