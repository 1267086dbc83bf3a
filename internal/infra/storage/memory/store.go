package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"stayly/internal/app/uow"
	domainbooking "stayly/internal/domain/booking"
	domainproperty "stayly/internal/domain/property"
)

var ErrUnitClosed = errors.New("memory: unit of work already finished")

// Store holds committed aggregates. Units stage their writes and apply them on Commit
// under the store lock, so a failed command leaves no trace.
type Store struct {
	mu         sync.RWMutex
	properties map[domainproperty.ID]*domainproperty.Property
	bookings   map[domainbooking.BookingID]*domainbooking.Booking
}

func NewStore() *Store {
	return &Store{
		properties: make(map[domainproperty.ID]*domainproperty.Property),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
	}
}

// Factory begins units against a shared Store.
type Factory struct {
	Store *Store
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, errors.New("memory: unit of work factory misconfigured")
	}
	return &Unit{
		store:      f.Store,
		readOnly:   opts.ReadOnly,
		properties: make(map[domainproperty.ID]*domainproperty.Property),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
		created:    make(map[domainbooking.BookingID]struct{}),
		base:       make(map[string]int64),
	}, nil
}

// Unit is a staged uow.UnitOfWork.
type Unit struct {
	store    *Store
	readOnly bool
	done     bool

	mu         sync.Mutex
	properties map[domainproperty.ID]*domainproperty.Property
	bookings   map[domainbooking.BookingID]*domainbooking.Booking
	created    map[domainbooking.BookingID]struct{}
	// base holds the committed version each staged aggregate was loaded at.
	base        map[string]int64
	afterCommit []func()
}

// AfterCommit queues fn to run once the unit commits. Rolled back units drop it.
func (u *Unit) AfterCommit(fn func()) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.afterCommit = append(u.afterCommit, fn)
}

func (u *Unit) Properties() domainproperty.Repository {
	return unitProperties{u: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return unitBookings{u: u}
}

func (u *Unit) Commit(ctx context.Context) error {
	hooks, err := u.commit()
	if err != nil {
		return err
	}
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func (u *Unit) commit() ([]func(), error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil, ErrUnitClosed
	}
	u.done = true
	if u.readOnly {
		return nil, nil
	}

	s := u.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range u.properties {
		if err := s.checkPropertyVersion(id, u.base[propertyKey(id)]); err != nil {
			return nil, err
		}
	}
	for id, b := range u.bookings {
		if _, isNew := u.created[id]; isNew {
			if _, exists := s.bookings[id]; exists {
				return nil, uow.ErrConcurrentUpdate
			}
			if s.conflicts(b) {
				return nil, domainbooking.ErrStayConflict
			}
			continue
		}
		if err := s.checkBookingVersion(id, u.base[bookingKey(id)]); err != nil {
			return nil, err
		}
	}
	for id, p := range u.properties {
		s.properties[id] = p
	}
	for id, b := range u.bookings {
		s.bookings[id] = b
	}
	return u.afterCommit, nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.done = true
	u.properties = map[domainproperty.ID]*domainproperty.Property{}
	u.bookings = map[domainbooking.BookingID]*domainbooking.Booking{}
	u.created = map[domainbooking.BookingID]struct{}{}
	u.base = map[string]int64{}
	u.afterCommit = nil
	return nil
}

func (s *Store) checkPropertyVersion(id domainproperty.ID, loaded int64) error {
	current, ok := s.properties[id]
	if !ok {
		if loaded == 0 {
			return nil
		}
		return uow.ErrConcurrentUpdate
	}
	if current.Version != loaded {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

func (s *Store) checkBookingVersion(id domainbooking.BookingID, loaded int64) error {
	current, ok := s.bookings[id]
	if !ok || current.Version != loaded {
		return uow.ErrConcurrentUpdate
	}
	return nil
}

// conflicts reports whether an active committed booking of the same property overlaps b.
func (s *Store) conflicts(b *domainbooking.Booking) bool {
	for _, other := range s.bookings {
		if other.ID == b.ID || !other.Status.Active() {
			continue
		}
		if other.Parties.PropertyID != b.Parties.PropertyID {
			continue
		}
		if other.Stay.Range.Overlaps(b.Stay.Range) {
			return true
		}
	}
	return false
}

type unitProperties struct {
	u *Unit
}

func (r unitProperties) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	r.u.mu.Lock()
	staged, ok := r.u.properties[id]
	r.u.mu.Unlock()
	if ok {
		return cloneProperty(staged), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, domainproperty.ErrNotFound
	}
	return cloneProperty(p), nil
}

func (r unitProperties) Save(ctx context.Context, p *domainproperty.Property) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return ErrUnitClosed
	}
	if staged, ok := r.u.properties[p.ID]; ok {
		if staged.Version != p.Version {
			return uow.ErrConcurrentUpdate
		}
	} else {
		r.u.base[propertyKey(p.ID)] = p.Version
	}
	p.Version++
	r.u.properties[p.ID] = cloneProperty(p)
	return nil
}

func (r unitProperties) Search(ctx context.Context, params domainproperty.SearchParams) (domainproperty.SearchResult, error) {
	params = params.Normalized()
	s := r.u.store
	s.mu.RLock()
	matches := make([]*domainproperty.Property, 0, len(s.properties))
	for _, p := range s.properties {
		if params.Matches(p) {
			matches = append(matches, cloneProperty(p))
		}
	}
	s.mu.RUnlock()
	// map order is random; fix a base order before the stable sort in Page
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return params.Page(matches), nil
}

type unitBookings struct {
	u *Unit
}

func (r unitBookings) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.u.mu.Lock()
	staged, ok := r.u.bookings[id]
	r.u.mu.Unlock()
	if ok {
		return cloneBooking(staged), nil
	}
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r unitBookings) Create(ctx context.Context, b *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return ErrUnitClosed
	}
	if _, ok := r.u.bookings[b.ID]; ok {
		return uow.ErrConcurrentUpdate
	}
	for _, staged := range r.u.bookings {
		if staged.Status.Active() && staged.Parties.PropertyID == b.Parties.PropertyID && staged.Stay.Range.Overlaps(b.Stay.Range) {
			return domainbooking.ErrStayConflict
		}
	}
	s := r.u.store
	s.mu.RLock()
	_, exists := s.bookings[b.ID]
	conflict := s.conflicts(b)
	s.mu.RUnlock()
	if exists {
		return uow.ErrConcurrentUpdate
	}
	if conflict {
		return domainbooking.ErrStayConflict
	}
	b.Version = 1
	r.u.bookings[b.ID] = cloneBooking(b)
	r.u.created[b.ID] = struct{}{}
	return nil
}

func (r unitBookings) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if r.u.done {
		return ErrUnitClosed
	}
	if staged, ok := r.u.bookings[b.ID]; ok {
		if staged.Version != b.Version {
			return uow.ErrConcurrentUpdate
		}
		if _, isNew := r.u.created[b.ID]; isNew {
			r.u.bookings[b.ID] = cloneBooking(b)
			return nil
		}
	} else {
		r.u.base[bookingKey(b.ID)] = b.Version
	}
	b.Version++
	r.u.bookings[b.ID] = cloneBooking(b)
	return nil
}

func (r unitBookings) ListByGuest(ctx context.Context, guestID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.Parties.GuestID == guestID }), nil
}

func (r unitBookings) ListByHost(ctx context.Context, hostID string) ([]*domainbooking.Booking, error) {
	return r.list(func(b *domainbooking.Booking) bool { return b.Parties.HostID == hostID }), nil
}

func (r unitBookings) list(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s := r.u.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func propertyKey(id domainproperty.ID) string { return "property:" + string(id) }

func bookingKey(id domainbooking.BookingID) string { return "booking:" + string(id) }

func cloneProperty(p *domainproperty.Property) *domainproperty.Property {
	c := *p
	c.ClearEvents()
	c.Amenities = append([]string(nil), p.Amenities...)
	c.Photos = append([]string(nil), p.Photos...)
	c.Schedule = p.Schedule.Copy()
	return &c
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	c := *b
	c.ClearEvents()
	return &c
}

var (
	_ uow.UoWFactory            = Factory{}
	_ domainproperty.Repository = unitProperties{}
	_ domainbooking.Repository  = unitBookings{}
)
