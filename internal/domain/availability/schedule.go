package availability

import (
	"sort"
	"time"

	"stayly/internal/domain/shared/daterange"
)

// Schedule is the availability data a property owns.
type Schedule struct {
	Windows []Window
	Blocked []BlockedRange
}

// AddWindow appends a window. Overlapping windows are allowed; they are never merged.
func (s *Schedule) AddWindow(r daterange.DateRange) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.Windows = append(s.Windows, Window{Range: r})
	sort.SliceStable(s.Windows, func(i, j int) bool {
		return s.Windows[i].Range.CheckIn.Before(s.Windows[j].Range.CheckIn)
	})
	return nil
}

// RemoveWindow drops every window exactly equal to r.
func (s *Schedule) RemoveWindow(r daterange.DateRange) bool {
	kept := s.Windows[:0]
	removed := false
	for _, w := range s.Windows {
		if w.Range.CheckIn.Equal(r.CheckIn) && w.Range.CheckOut.Equal(r.CheckOut) {
			removed = true
			continue
		}
		kept = append(kept, w)
	}
	s.Windows = kept
	return removed
}

// Block closes r. Blocks may not overlap each other.
func (s *Schedule) Block(r daterange.DateRange, reason BlockReason, note, reference string, now time.Time) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for _, b := range s.Blocked {
		if b.Range.Overlaps(r) {
			return ErrOverlappingBlock
		}
	}
	if reason == "" {
		reason = ReasonHostBlock
	}
	s.Blocked = append(s.Blocked, BlockedRange{
		Range:     r,
		Reason:    reason,
		Note:      note,
		Reference: reference,
		CreatedAt: now.UTC(),
	})
	return nil
}

func (s *Schedule) Release(reference string) (BlockedRange, error) {
	for i, b := range s.Blocked {
		if b.Reference == reference {
			s.Blocked = append(s.Blocked[:i], s.Blocked[i+1:]...)
			return b, nil
		}
	}
	return BlockedRange{}, ErrBlockNotFound
}

func (s Schedule) Copy() Schedule {
	return Schedule{
		Windows: append([]Window(nil), s.Windows...),
		Blocked: append([]BlockedRange(nil), s.Blocked...),
	}
}
