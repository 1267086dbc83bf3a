package property

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayly/internal/domain/availability"
	"stayly/internal/domain/pricing"
	"stayly/internal/domain/shared/daterange"
	"stayly/internal/domain/shared/events"
)

var (
	ErrIDRequired       = errors.New("property: id is required")
	ErrHostRequired     = errors.New("property: host is required")
	ErrTitleRequired    = errors.New("property: title is required")
	ErrGuestsLimit      = errors.New("property: max guests must be at least 1")
	ErrAddressRequired  = errors.New("property: address must be provided before publishing")
	ErrPricingRequired  = errors.New("property: pricing must be configured before publishing")
	ErrInvalidState     = errors.New("property: invalid state transition")
	ErrNotFound         = errors.New("property: not found")
	ErrNotOwned         = errors.New("property: not owned by host")
	ErrNotBookable      = errors.New("property: not open for booking")
	ErrTooManyPhotos    = errors.New("property: photo limit reached")
	ErrPhotoURLRequired = errors.New("property: photo url is required")
)

const MaxPhotos = 20

type ID string
type HostID string

type State string

const (
	StateDraft     State = "DRAFT"
	StatePublished State = "PUBLISHED"
	StateUnlisted  State = "UNLISTED"
)

type Address struct {
	Line1   string
	Line2   string
	City    string
	State   string
	Country string
	Lat     float64
	Lon     float64
}

func (a Address) Valid() bool {
	return strings.TrimSpace(a.Line1) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.Country) != ""
}

type Property struct {
	ID                   ID
	Host                 HostID
	Title                string
	Description          string
	PropertyType         string
	Address              Address
	Amenities            []string
	MaxGuests            int
	Bedrooms             int
	Bathrooms            int
	CancellationPolicyID string
	Pricing              pricing.Config
	Schedule             availability.Schedule
	Photos               []string
	State                State
	Version              int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Property, error)
	Save(ctx context.Context, p *Property) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}

type CreateParams struct {
	ID                   ID
	Host                 HostID
	Title                string
	Description          string
	PropertyType         string
	Address              Address
	Amenities            []string
	MaxGuests            int
	Bedrooms             int
	Bathrooms            int
	CancellationPolicyID string
	Pricing              pricing.Config
	Now                  time.Time
}

func New(params CreateParams) (*Property, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Host)) == "" {
		return nil, ErrHostRequired
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, ErrTitleRequired
	}
	if params.MaxGuests < 1 {
		return nil, ErrGuestsLimit
	}
	now := params.Now.UTC()
	p := &Property{
		ID:                   params.ID,
		Host:                 params.Host,
		Title:                strings.TrimSpace(params.Title),
		Description:          strings.TrimSpace(params.Description),
		PropertyType:         strings.ToLower(strings.TrimSpace(params.PropertyType)),
		Address:              params.Address,
		Amenities:            normalizeTokens(params.Amenities),
		MaxGuests:            params.MaxGuests,
		Bedrooms:             params.Bedrooms,
		Bathrooms:            params.Bathrooms,
		CancellationPolicyID: strings.TrimSpace(params.CancellationPolicyID),
		Pricing:              params.Pricing,
		State:                StateDraft,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	p.Record(PropertyCreated{PropertyID: p.ID, HostID: p.Host, At: now})
	return p, nil
}

type UpdateDetailsParams struct {
	Title                string
	Description          string
	PropertyType         string
	Address              Address
	Amenities            []string
	MaxGuests            int
	Bedrooms             int
	Bathrooms            int
	CancellationPolicyID string
	Now                  time.Time
}

func (p *Property) UpdateDetails(params UpdateDetailsParams) error {
	if strings.TrimSpace(params.Title) == "" {
		return ErrTitleRequired
	}
	if params.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if p.State == StatePublished && !params.Address.Valid() {
		return ErrAddressRequired
	}
	p.Title = strings.TrimSpace(params.Title)
	p.Description = strings.TrimSpace(params.Description)
	p.PropertyType = strings.ToLower(strings.TrimSpace(params.PropertyType))
	p.Address = params.Address
	p.Amenities = normalizeTokens(params.Amenities)
	p.MaxGuests = params.MaxGuests
	p.Bedrooms = params.Bedrooms
	p.Bathrooms = params.Bathrooms
	p.CancellationPolicyID = strings.TrimSpace(params.CancellationPolicyID)
	p.touch(params.Now)
	p.Record(PropertyUpdated{PropertyID: p.ID, At: p.UpdatedAt})
	return nil
}

// UpdatePricing replaces the pricing config. Existing bookings keep their frozen prices.
func (p *Property) UpdatePricing(cfg pricing.Config, now time.Time) error {
	if cfg.IsZero() {
		return ErrPricingRequired
	}
	p.Pricing = cfg
	p.touch(now)
	p.Record(PricingChanged{PropertyID: p.ID, NightlyRate: cfg.BasePricePerNight().String(), Currency: cfg.Currency(), At: p.UpdatedAt})
	return nil
}

func (p *Property) AddWindow(r daterange.DateRange, now time.Time) error {
	if err := p.Schedule.AddWindow(r); err != nil {
		return err
	}
	p.touch(now)
	p.Record(ScheduleChanged{PropertyID: p.ID, Change: "window_added", Range: r, At: p.UpdatedAt})
	return nil
}

func (p *Property) RemoveWindow(r daterange.DateRange, now time.Time) error {
	if !p.Schedule.RemoveWindow(r) {
		return availability.ErrBlockNotFound
	}
	p.touch(now)
	p.Record(ScheduleChanged{PropertyID: p.ID, Change: "window_removed", Range: r, At: p.UpdatedAt})
	return nil
}

func (p *Property) BlockDates(r daterange.DateRange, reason availability.BlockReason, note, reference string, now time.Time) error {
	if err := p.Schedule.Block(r, reason, note, reference, now); err != nil {
		return err
	}
	p.touch(now)
	p.Record(ScheduleChanged{PropertyID: p.ID, Change: "blocked", Range: r, At: p.UpdatedAt})
	return nil
}

func (p *Property) ReleaseBlock(reference string, now time.Time) error {
	released, err := p.Schedule.Release(reference)
	if err != nil {
		return err
	}
	p.touch(now)
	p.Record(ScheduleChanged{PropertyID: p.ID, Change: "released", Range: released.Range, At: p.UpdatedAt})
	return nil
}

func (p *Property) Publish(now time.Time) error {
	if p.State == StatePublished {
		return nil
	}
	if !p.Address.Valid() {
		return ErrAddressRequired
	}
	if p.Pricing.IsZero() {
		return ErrPricingRequired
	}
	if p.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	p.State = StatePublished
	p.touch(now)
	p.Record(PropertyPublished{PropertyID: p.ID, HostID: p.Host, At: p.UpdatedAt})
	return nil
}

func (p *Property) Unlist(reason string, now time.Time) error {
	if p.State != StatePublished {
		return ErrInvalidState
	}
	p.State = StateUnlisted
	p.touch(now)
	p.Record(PropertyUnlisted{PropertyID: p.ID, Reason: reason, At: p.UpdatedAt})
	return nil
}

func (p *Property) AddPhoto(url string, now time.Time) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrPhotoURLRequired
	}
	if len(p.Photos) >= MaxPhotos {
		return ErrTooManyPhotos
	}
	p.Photos = append(p.Photos, url)
	p.touch(now)
	p.Record(PropertyUpdated{PropertyID: p.ID, At: p.UpdatedAt})
	return nil
}

// Bookable reports whether guests may request stays.
func (p *Property) Bookable() bool {
	return p.State == StatePublished && !p.Pricing.IsZero()
}

func (p *Property) OwnedBy(host string) bool {
	return string(p.Host) == strings.TrimSpace(host)
}

func (p *Property) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	p.UpdatedAt = now.UTC()
}

func normalizeTokens(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
