package properties

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayly/internal/app/dto"
	handlersupport "stayly/internal/app/handlers/support"
	"stayly/internal/app/outbox"
	"stayly/internal/app/policies"
	"stayly/internal/app/uow"
	"stayly/internal/domain/availability"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/money"
)

const (
	createPropertyKey = "property.create"
	updatePropertyKey = "property.update"
	setPricingKey     = "property.pricing.set"
	addWindowKey      = "property.window.add"
	removeWindowKey   = "property.window.remove"
	blockDatesKey     = "property.block"
	unblockDatesKey   = "property.unblock"
	publishKey        = "property.publish"
	unlistKey         = "property.unlist"
	uploadPhotoKey    = "property.photo.upload"

	hostRole = "host"
)

var (
	ErrPhotoStorageUnavailable = errors.New("property: photo storage unavailable")
	ErrPhotoRequired           = errors.New("property: photo body is required")
	ErrBookingHoldRelease      = errors.New("property: booking holds are released by cancelling the booking")
)

type CreatePropertyCommand struct {
	HostID  string `validate:"required"`
	Details DetailsInput
	Pricing *PricingInput
}

func (CreatePropertyCommand) Key() string          { return createPropertyKey }
func (CreatePropertyCommand) RequiredRole() string { return hostRole }

type UpdatePropertyCommand struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
	Details    DetailsInput
}

func (UpdatePropertyCommand) Key() string          { return updatePropertyKey }
func (UpdatePropertyCommand) RequiredRole() string { return hostRole }

type SetPricingCommand struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
	Pricing    PricingInput
}

func (SetPricingCommand) Key() string          { return setPricingKey }
func (SetPricingCommand) RequiredRole() string { return hostRole }

type WindowCommand struct {
	HostID     string    `validate:"required"`
	PropertyID string    `validate:"required"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required"`
}

type AddWindowCommand WindowCommand

func (AddWindowCommand) Key() string          { return addWindowKey }
func (AddWindowCommand) RequiredRole() string { return hostRole }

type RemoveWindowCommand WindowCommand

func (RemoveWindowCommand) Key() string          { return removeWindowKey }
func (RemoveWindowCommand) RequiredRole() string { return hostRole }

type BlockDatesCommand struct {
	HostID     string    `validate:"required"`
	PropertyID string    `validate:"required"`
	From       time.Time `validate:"required"`
	To         time.Time `validate:"required"`
	Reason     string    `validate:"omitempty,oneof=HOST_BLOCK MAINTENANCE"`
	Note       string    `validate:"max=500"`
}

func (BlockDatesCommand) Key() string          { return blockDatesKey }
func (BlockDatesCommand) RequiredRole() string { return hostRole }

type UnblockDatesCommand struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
	Reference  string `validate:"required"`
}

func (UnblockDatesCommand) Key() string          { return unblockDatesKey }
func (UnblockDatesCommand) RequiredRole() string { return hostRole }

type PublishPropertyCommand struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
}

func (PublishPropertyCommand) Key() string          { return publishKey }
func (PublishPropertyCommand) RequiredRole() string { return hostRole }

type UnlistPropertyCommand struct {
	HostID     string `validate:"required"`
	PropertyID string `validate:"required"`
	Reason     string `validate:"max=500"`
}

func (UnlistPropertyCommand) Key() string          { return unlistKey }
func (UnlistPropertyCommand) RequiredRole() string { return hostRole }

type UploadPhotoCommand struct {
	HostID      string `validate:"required"`
	PropertyID  string `validate:"required"`
	FileName    string
	ContentType string `validate:"required"`
	Size        int64
	Body        io.Reader
}

func (UploadPhotoCommand) Key() string          { return uploadPhotoKey }
func (UploadPhotoCommand) RequiredRole() string { return hostRole }

// Handler serves every host-side property command.
type Handler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Photos     policies.PhotoStorage
	Currency   string
	Now        func() time.Time
	NewID      func() string
	Logger     *slog.Logger
}

func (h *Handler) Create(ctx context.Context, cmd CreatePropertyCommand) (dto.Property, error) {
	now := h.now()
	var cfg pricing.Config
	if cmd.Pricing != nil {
		var err error
		if cfg, err = cmd.Pricing.Config(h.currency()); err != nil {
			return dto.Property{}, err
		}
	}
	d := cmd.Details
	prop, err := domainproperty.New(domainproperty.CreateParams{
		ID:                   domainproperty.ID(h.newID()),
		Host:                 domainproperty.HostID(cmd.HostID),
		Title:                d.Title,
		Description:          d.Description,
		PropertyType:         d.PropertyType,
		Address:              d.Address.domain(),
		Amenities:            d.Amenities,
		MaxGuests:            d.MaxGuests,
		Bedrooms:             d.Bedrooms,
		Bathrooms:            d.Bathrooms,
		CancellationPolicyID: d.CancellationPolicyID,
		Pricing:              cfg,
		Now:                  now,
	})
	if err != nil {
		return dto.Property{}, err
	}
	err = handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Properties().Save(ctx, prop); err != nil {
			return err
		}
		return outbox.Drain(ctx, h.Outbox, h.Encoder, prop)
	})
	if err != nil {
		return dto.Property{}, err
	}
	h.logger().InfoContext(ctx, "property created", "property_id", prop.ID, "host_id", prop.Host)
	return dto.MapProperty(prop), nil
}

func (h *Handler) Update(ctx context.Context, cmd UpdatePropertyCommand) (dto.Property, error) {
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		d := cmd.Details
		return p.UpdateDetails(domainproperty.UpdateDetailsParams{
			Title:                d.Title,
			Description:          d.Description,
			PropertyType:         d.PropertyType,
			Address:              d.Address.domain(),
			Amenities:            d.Amenities,
			MaxGuests:            d.MaxGuests,
			Bedrooms:             d.Bedrooms,
			Bathrooms:            d.Bathrooms,
			CancellationPolicyID: d.CancellationPolicyID,
			Now:                  now,
		})
	})
}

func (h *Handler) SetPricing(ctx context.Context, cmd SetPricingCommand) (dto.Property, error) {
	cfg, err := cmd.Pricing.Config(h.currency())
	if err != nil {
		return dto.Property{}, err
	}
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.UpdatePricing(cfg, now)
	})
}

func (h *Handler) AddWindow(ctx context.Context, cmd AddWindowCommand) (dto.Property, error) {
	r, err := daterange.New(cmd.From, cmd.To)
	if err != nil {
		return dto.Property{}, err
	}
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.AddWindow(r, now)
	})
}

func (h *Handler) RemoveWindow(ctx context.Context, cmd RemoveWindowCommand) (dto.Property, error) {
	r, err := daterange.New(cmd.From, cmd.To)
	if err != nil {
		return dto.Property{}, err
	}
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.RemoveWindow(r, now)
	})
}

func (h *Handler) BlockDates(ctx context.Context, cmd BlockDatesCommand) (dto.Property, error) {
	r, err := daterange.New(cmd.From, cmd.To)
	if err != nil {
		return dto.Property{}, err
	}
	reason := availability.BlockReason(cmd.Reason)
	if reason == "" {
		reason = availability.ReasonHostBlock
	}
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.BlockDates(r, reason, strings.TrimSpace(cmd.Note), "blk-"+h.newID(), now)
	})
}

func (h *Handler) UnblockDates(ctx context.Context, cmd UnblockDatesCommand) (dto.Property, error) {
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		for _, b := range p.Schedule.Blocked {
			if b.Reference == cmd.Reference && b.Reason == availability.ReasonBooking {
				return ErrBookingHoldRelease
			}
		}
		return p.ReleaseBlock(cmd.Reference, now)
	})
}

func (h *Handler) Publish(ctx context.Context, cmd PublishPropertyCommand) (dto.Property, error) {
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.Publish(now)
	})
}

func (h *Handler) Unlist(ctx context.Context, cmd UnlistPropertyCommand) (dto.Property, error) {
	return h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.Unlist(strings.TrimSpace(cmd.Reason), now)
	})
}

// UploadPhoto stores the object before the unit opens; a failed save leaves an orphan object.
func (h *Handler) UploadPhoto(ctx context.Context, cmd UploadPhotoCommand) (dto.Property, error) {
	if h.Photos == nil {
		return dto.Property{}, ErrPhotoStorageUnavailable
	}
	if cmd.Body == nil {
		return dto.Property{}, ErrPhotoRequired
	}
	if err := h.checkOwner(ctx, cmd.HostID, cmd.PropertyID); err != nil {
		return dto.Property{}, err
	}
	key := fmt.Sprintf("properties/%s/%s%s", cmd.PropertyID, h.newID(), strings.ToLower(path.Ext(cmd.FileName)))
	url, err := h.Photos.Upload(ctx, policies.UploadInput{Key: key, ContentType: cmd.ContentType, Size: cmd.Size, Body: cmd.Body})
	if err != nil {
		return dto.Property{}, fmt.Errorf("upload photo: %w", err)
	}
	out, err := h.mutate(ctx, cmd.HostID, cmd.PropertyID, func(p *domainproperty.Property, now time.Time) error {
		return p.AddPhoto(url, now)
	})
	if err != nil {
		return dto.Property{}, err
	}
	h.logger().InfoContext(ctx, "property photo added", "property_id", cmd.PropertyID, "object_key", key)
	return out, nil
}

func (h *Handler) checkOwner(ctx context.Context, hostID, propertyID string) error {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	prop, err := unit.Properties().ByID(execCtx, domainproperty.ID(propertyID))
	if err != nil {
		return err
	}
	if !prop.OwnedBy(hostID) {
		return domainproperty.ErrNotOwned
	}
	return nil
}

func (h *Handler) mutate(ctx context.Context, hostID, propertyID string, fn func(*domainproperty.Property, time.Time) error) (dto.Property, error) {
	now := h.now()
	var out dto.Property
	err := handlersupport.InUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		prop, err := unit.Properties().ByID(ctx, domainproperty.ID(propertyID))
		if err != nil {
			return err
		}
		if !prop.OwnedBy(hostID) {
			return domainproperty.ErrNotOwned
		}
		if err := fn(prop, now); err != nil {
			return err
		}
		if err := unit.Properties().Save(ctx, prop); err != nil {
			return err
		}
		if err := outbox.Drain(ctx, h.Outbox, h.Encoder, prop); err != nil {
			return err
		}
		out = dto.MapProperty(prop)
		return nil
	})
	return out, err
}

func (h *Handler) currency() string {
	if h.Currency != "" {
		return h.Currency
	}
	return money.DefaultCurrency
}

func (h *Handler) newID() string {
	if h.NewID != nil {
		return h.NewID()
	}
	return uuid.NewString()
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}
