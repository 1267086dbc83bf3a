package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stayly/internal/domain/availability"
	domainbooking "stayly/internal/domain/booking"
	"stayly/internal/domain/pricing"
	domainproperty "stayly/internal/domain/property"
	"stayly/internal/domain/shared/daterange"
)

func aug(d int) time.Time {
	return time.Date(2025, time.August, d, 0, 0, 0, 0, time.UTC)
}

func TestPropertyDocumentKeepsExactPricing(t *testing.T) {
	cfg := pricing.MustConfig(pricing.ConfigParams{
		Currency:              "INR",
		BasePricePerNight:     decimal.RequireFromString("4999.99"),
		CleaningFee:           decimal.RequireFromString("0.01"),
		TaxRatePercent:        decimal.NewFromInt(18),
		MinimumStayNights:     2,
		WeeklyDiscountPercent: decimal.RequireFromString("7.5"),
	})
	p, err := domainproperty.New(domainproperty.CreateParams{
		ID: "p1", Host: "h1", Title: "Loft", MaxGuests: 3, Pricing: cfg,
		Address: domainproperty.Address{Line1: "1 Main", City: "Goa", Country: "IN"},
		Now:     aug(1),
	})
	require.NoError(t, err)
	require.NoError(t, p.AddWindow(daterange.Must(aug(1), aug(30)), aug(1)))
	require.NoError(t, p.BlockDates(daterange.Must(aug(5), aug(7)), availability.ReasonBooking, "", "b1", aug(1)))

	doc := newPropertyDocument(p)
	assert.Equal(t, "goa", doc.Address.CityKey)
	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded propertyDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	back, err := decoded.toAggregate()
	require.NoError(t, err)
	assert.True(t, back.Pricing.BasePricePerNight().Equal(decimal.RequireFromString("4999.99")))
	assert.Equal(t, cfg.Params().WeeklyDiscountPercent.String(), back.Pricing.Params().WeeklyDiscountPercent.String())
	require.Len(t, back.Schedule.Blocked, 1)
	assert.Equal(t, "b1", back.Schedule.Blocked[0].Reference)
	assert.True(t, back.Schedule.Windows[0].Range.CheckOut.Equal(aug(30)))
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	cfg := pricing.MustConfig(pricing.ConfigParams{Currency: "INR", BasePricePerNight: decimal.NewFromInt(1000), ServiceFee: decimal.RequireFromString("12.345"), MinimumStayNights: 1})
	stay, err := domainbooking.NewStayRequest(aug(10), aug(17), 2)
	require.NoError(t, err)
	breakdown, err := pricing.Compute(cfg, stay.Nights())
	require.NoError(t, err)
	b, err := domainbooking.Build(domainbooking.BuildParams{
		ID: "b1", Stay: stay, Breakdown: breakdown,
		Parties:   domainbooking.Parties{PropertyID: "p1", GuestID: "g1", HostID: "h1"},
		Policy:    domainbooking.SnapshotPolicy(domainbooking.PolicyStrict, aug(10)),
		CreatedAt: aug(1),
	})
	require.NoError(t, err)

	back, err := newBookingDocument(b).toAggregate()
	require.NoError(t, err)
	assert.True(t, back.Price.TotalAmount.Equal(b.Price.TotalAmount))
	assert.Equal(t, b.Price.Discount.Kind, back.Price.Discount.Kind)
	assert.Equal(t, b.Policy, back.Policy)
	assert.Equal(t, b.Parties, back.Parties)
	assert.Equal(t, 7, back.Stay.Nights())
}

func TestSearchFilter(t *testing.T) {
	params := domainproperty.SearchParams{
		City:      " Goa ",
		MinGuests: 2,
		States:    []domainproperty.State{domainproperty.StatePublished},
		Amenities: []string{"WiFi"},
	}.Normalized()
	filter := searchFilter(params)
	assert.Equal(t, "goa", filter["address.city_key"])
	assert.Equal(t, bson.M{"$gte": 2}, filter["max_guests"])
	assert.Equal(t, bson.M{"$all": []string{"wifi"}}, filter["amenities"])
	assert.Equal(t, bson.M{"$in": bson.A{"PUBLISHED"}}, filter["state"])
	assert.NotContains(t, filter, "host_id")
}

func TestSearchFilterPriceAndSort(t *testing.T) {
	params := domainproperty.SearchParams{
		PriceMin: decimal.NewFromInt(2000),
		PriceMax: decimal.RequireFromString("4999.99"),
		Sort:     domainproperty.SortByPriceDesc,
	}.Normalized()
	filter := searchFilter(params)
	require.Contains(t, filter, "$or")
	or := filter["$or"].(bson.A)
	require.Len(t, or, 2)
	assert.Equal(t, bson.M{"pricing": nil}, or[0])
	price := or[1].(bson.M)["pricing.base_numeric"].(bson.M)
	assert.InDelta(t, 1999.99, price["$gte"], 1e-9)
	assert.InDelta(t, 5000.00, price["$lte"], 1e-9)

	assert.Equal(t, bson.D{{Key: "pricing.base_numeric", Value: -1}, {Key: "_id", Value: 1}}, searchSort(params))
	assert.Equal(t, "created_at", searchSort(domainproperty.SearchParams{Sort: domainproperty.SortByNewest})[0].Key)

	assert.NotContains(t, searchFilter(domainproperty.SearchParams{}.Normalized()), "$or")
}

func TestConflictErrorsMapToDomainErrors(t *testing.T) {
	writeConflict := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 112, Message: "WriteConflict"}}},
		Labels:      []string{transientTxnLabel},
	}
	duplicate := mongo.BulkWriteException{
		WriteErrors: []mongo.BulkWriteError{{WriteError: mongo.WriteError{Code: 11000, Message: "E11000 duplicate key"}}},
	}
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"concurrent lock insert", writeConflict, domainbooking.ErrStayConflict},
		{"committed overlapping booking", duplicate, domainbooking.ErrStayConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, lockError(tt.err), tt.want)
		})
	}

	other := lockError(errors.New("network down"))
	assert.NotErrorIs(t, other, domainbooking.ErrStayConflict)
	assert.ErrorContains(t, other, "mongo: lock nights")

	commitConflict := mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{transientTxnLabel}}
	assert.True(t, isWriteConflict(commitConflict))
	assert.True(t, isWriteConflict(fmt.Errorf("commit: %w", commitConflict)))
	assert.False(t, isWriteConflict(mongo.CommandError{Code: 2}))
	assert.False(t, isWriteConflict(nil))
}
