package daterange_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayly/internal/domain/shared/daterange"
)

func june(d int) time.Time {
	return time.Date(2025, time.June, d, 0, 0, 0, 0, time.UTC)
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  time.Time
		checkOut time.Time
		wantErr  bool
		nights   int
	}{
		{name: "ten nights", checkIn: june(10), checkOut: june(20), nights: 10},
		{name: "time of day is dropped", checkIn: june(10).Add(15 * time.Hour), checkOut: june(11).Add(9 * time.Hour), nights: 1},
		{name: "zero length", checkIn: june(10), checkOut: june(10), wantErr: true},
		{name: "same day different hours", checkIn: june(10).Add(time.Hour), checkOut: june(10).Add(20 * time.Hour), wantErr: true},
		{name: "inverted", checkIn: june(12), checkOut: june(10), wantErr: true},
		{name: "zero checkin", checkOut: june(10), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dr, err := daterange.New(tt.checkIn, tt.checkOut)
			if tt.wantErr {
				assert.ErrorIs(t, err, daterange.ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.nights, dr.Nights())
		})
	}
}

func TestOverlaps(t *testing.T) {
	base := daterange.Must(june(10), june(15))
	tests := []struct {
		name  string
		other daterange.DateRange
		want  bool
	}{
		{name: "inside", other: daterange.Must(june(12), june(13)), want: true},
		{name: "touching end", other: daterange.Must(june(15), june(18)), want: false},
		{name: "touching start", other: daterange.Must(june(5), june(10)), want: false},
		{name: "straddling start", other: daterange.Must(june(8), june(11)), want: true},
		{name: "covering", other: daterange.Must(june(1), june(30)), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestContains(t *testing.T) {
	window := daterange.Must(june(1), june(30))
	assert.True(t, window.Contains(daterange.Must(june(10), june(15))))
	assert.True(t, window.Contains(window))
	assert.False(t, window.Contains(daterange.Must(june(25), time.Date(2025, time.July, 2, 0, 0, 0, 0, time.UTC))))
	assert.False(t, daterange.Must(june(1), june(9)).Contains(daterange.Must(june(10), june(15))))
}

func TestEachNight(t *testing.T) {
	var nights []time.Time
	daterange.Must(june(10), june(13)).EachNight(func(n time.Time) {
		nights = append(nights, n)
	})
	assert.Equal(t, []time.Time{june(10), june(11), june(12)}, nights)
}
