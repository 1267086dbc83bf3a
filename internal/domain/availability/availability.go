package availability

import (
	"errors"
	"strings"
	"time"

	"stayly/internal/domain/shared/daterange"
)

var (
	// ErrStayUnavailable is returned by callers that turn a false availability answer into an error.
	ErrStayUnavailable  = errors.New("availability: requested dates are unavailable")
	ErrOverlappingBlock = errors.New("availability: range overlaps with an existing block")
	ErrBlockNotFound    = errors.New("availability: block not found")
	ErrUnknownPolicy    = errors.New("availability: unknown empty windows policy")
)

type BlockReason string

const (
	ReasonHostBlock   BlockReason = "HOST_BLOCK"
	ReasonMaintenance BlockReason = "MAINTENANCE"
	ReasonBooking     BlockReason = "BOOKING"
)

// Window is a host-declared range during which the property can be booked.
type Window struct {
	Range daterange.DateRange
}

// BlockedRange closes part of the calendar. Reference identifies the block for release.
type BlockedRange struct {
	Range     daterange.DateRange
	Reason    BlockReason
	Note      string
	Reference string
	CreatedAt time.Time
}

// IsStayAvailable reports whether stay is fully inside one declared window and clear of
// every blocked range. An empty window list means no declared availability.
func IsStayAvailable(windows []Window, blocked []BlockedRange, stay daterange.DateRange) bool {
	return Checker{Policy: EmptyWindowsClosed}.check(windows, blocked, stay)
}

// EmptyWindowsPolicy decides what a property without declared windows means.
type EmptyWindowsPolicy string

const (
	EmptyWindowsClosed       EmptyWindowsPolicy = "closed"
	EmptyWindowsUnrestricted EmptyWindowsPolicy = "unrestricted"
)

func ParsePolicy(raw string) (EmptyWindowsPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(EmptyWindowsClosed):
		return EmptyWindowsClosed, nil
	case string(EmptyWindowsUnrestricted):
		return EmptyWindowsUnrestricted, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// Checker applies IsStayAvailable with a configurable empty windows policy.
type Checker struct {
	Policy EmptyWindowsPolicy
}

func (c Checker) Available(s Schedule, stay daterange.DateRange) bool {
	return c.check(s.Windows, s.Blocked, stay)
}

func (c Checker) check(windows []Window, blocked []BlockedRange, stay daterange.DateRange) bool {
	if stay.Validate() != nil {
		return false
	}
	if len(windows) == 0 {
		if c.Policy != EmptyWindowsUnrestricted {
			return false
		}
	} else if !withinAnyWindow(windows, stay) {
		return false
	}
	for _, b := range blocked {
		if b.Range.Overlaps(stay) {
			return false
		}
	}
	return true
}

// windows are not merged: a stay spanning two adjacent windows is not contained.
func withinAnyWindow(windows []Window, stay daterange.DateRange) bool {
	for _, w := range windows {
		if w.Range.Contains(stay) {
			return true
		}
	}
	return false
}
