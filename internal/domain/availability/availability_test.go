package availability_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/domain/availability"
	"stayly/internal/domain/shared/daterange"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2025, m, d, 0, 0, 0, 0, time.UTC)
}

func rng(from, to time.Time) daterange.DateRange {
	return daterange.Must(from, to)
}

func TestIsStayAvailable(t *testing.T) {
	stay := rng(day(time.June, 10), day(time.June, 15))
	june := []availability.Window{{Range: rng(day(time.June, 1), day(time.June, 30))}}

	tests := []struct {
		name    string
		windows []availability.Window
		blocked []availability.BlockedRange
		want    bool
	}{
		{name: "inside window no blocks", windows: june, want: true},
		{
			name:    "blocked night inside stay",
			windows: june,
			blocked: []availability.BlockedRange{{Range: rng(day(time.June, 12), day(time.June, 13))}},
			want:    false,
		},
		{
			name:    "block ending on checkin",
			windows: june,
			blocked: []availability.BlockedRange{{Range: rng(day(time.June, 5), day(time.June, 10))}},
			want:    true,
		},
		{
			name:    "block starting on checkout",
			windows: june,
			blocked: []availability.BlockedRange{{Range: rng(day(time.June, 15), day(time.June, 16))}},
			want:    true,
		},
		{
			name:    "window ends before stay",
			windows: []availability.Window{{Range: rng(day(time.June, 1), day(time.June, 9))}},
			want:    false,
		},
		{
			name: "adjacent windows are not merged",
			windows: []availability.Window{
				{Range: rng(day(time.June, 1), day(time.June, 12))},
				{Range: rng(day(time.June, 12), day(time.June, 30))},
			},
			want: false,
		},
		{
			name: "second window contains stay",
			windows: []availability.Window{
				{Range: rng(day(time.May, 1), day(time.May, 20))},
				{Range: rng(day(time.June, 10), day(time.June, 15))},
			},
			want: true,
		},
		{name: "no windows declared", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, availability.IsStayAvailable(tt.windows, tt.blocked, stay))
		})
	}
}

func TestCheckerEmptyWindowsPolicy(t *testing.T) {
	stay := rng(day(time.June, 10), day(time.June, 15))
	s := availability.Schedule{}

	assert.False(t, availability.Checker{Policy: availability.EmptyWindowsClosed}.Available(s, stay))
	assert.True(t, availability.Checker{Policy: availability.EmptyWindowsUnrestricted}.Available(s, stay))

	s.Blocked = []availability.BlockedRange{{Range: rng(day(time.June, 14), day(time.June, 20))}}
	assert.False(t, availability.Checker{Policy: availability.EmptyWindowsUnrestricted}.Available(s, stay))
}

func TestParsePolicy(t *testing.T) {
	p, err := availability.ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, availability.EmptyWindowsClosed, p)

	p, err = availability.ParsePolicy("Unrestricted")
	require.NoError(t, err)
	assert.Equal(t, availability.EmptyWindowsUnrestricted, p)

	_, err = availability.ParsePolicy("sometimes")
	assert.ErrorIs(t, err, availability.ErrUnknownPolicy)
}

func TestScheduleBlockAndRelease(t *testing.T) {
	now := day(time.May, 1)
	var s availability.Schedule
	require.NoError(t, s.AddWindow(rng(day(time.June, 1), day(time.June, 30))))

	require.NoError(t, s.Block(rng(day(time.June, 12), day(time.June, 13)), "", "painting", "blk-1", now))
	assert.Equal(t, availability.ReasonHostBlock, s.Blocked[0].Reason)

	err := s.Block(rng(day(time.June, 11), day(time.June, 14)), availability.ReasonMaintenance, "", "blk-2", now)
	assert.ErrorIs(t, err, availability.ErrOverlappingBlock)

	stay := rng(day(time.June, 10), day(time.June, 15))
	assert.False(t, availability.Checker{}.Available(s, stay))

	released, err := s.Release("blk-1")
	require.NoError(t, err)
	assert.Equal(t, "painting", released.Note)
	assert.True(t, availability.Checker{}.Available(s, stay))

	_, err = s.Release("blk-1")
	assert.ErrorIs(t, err, availability.ErrBlockNotFound)
}

func TestScheduleWindows(t *testing.T) {
	var s availability.Schedule
	require.NoError(t, s.AddWindow(rng(day(time.July, 1), day(time.July, 30))))
	require.NoError(t, s.AddWindow(rng(day(time.June, 1), day(time.June, 30))))
	assert.Equal(t, day(time.June, 1), s.Windows[0].Range.CheckIn)

	assert.Error(t, s.AddWindow(daterange.DateRange{CheckIn: day(time.June, 5), CheckOut: day(time.June, 5)}))

	assert.True(t, s.RemoveWindow(rng(day(time.June, 1), day(time.June, 30))))
	assert.False(t, s.RemoveWindow(rng(day(time.June, 1), day(time.June, 30))))
	assert.Len(t, s.Windows, 1)
}
