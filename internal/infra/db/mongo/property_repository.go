package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayly/internal/app/uow"
	domainproperty "stayly/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("agg_property")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id domainproperty.ID) (*domainproperty.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainproperty.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *PropertyRepository) Save(ctx context.Context, p *domainproperty.Property) error {
	doc := newPropertyDocument(p)
	filter := bson.M{"_id": doc.ID, "version": p.Version}
	doc.Version = p.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) || isWriteConflict(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConcurrentUpdate
	}
	p.Version = doc.Version
	return nil
}

// Search narrows and orders candidates in the query, then applies the exact decimal
// filters and availability in memory before paging.
func (r *PropertyRepository) Search(ctx context.Context, params domainproperty.SearchParams) (domainproperty.SearchResult, error) {
	params = params.Normalized()
	cur, err := r.col.Find(ctx, searchFilter(params), options.Find().SetSort(searchSort(params)))
	if err != nil {
		return domainproperty.SearchResult{}, fmt.Errorf("mongo: property search: %w", err)
	}
	defer cur.Close(ctx)

	matches := make([]*domainproperty.Property, 0)
	for cur.Next(ctx) {
		var doc propertyDocument
		if err := cur.Decode(&doc); err != nil {
			return domainproperty.SearchResult{}, err
		}
		p, err := doc.toAggregate()
		if err != nil {
			return domainproperty.SearchResult{}, err
		}
		if params.Matches(p) {
			matches = append(matches, p)
		}
	}
	if err := cur.Err(); err != nil {
		return domainproperty.SearchResult{}, err
	}
	return params.Page(matches), nil
}

func searchFilter(params domainproperty.SearchParams) bson.M {
	filter := bson.M{}
	if params.Host != "" {
		filter["host_id"] = string(params.Host)
	}
	if len(params.States) > 0 {
		states := make(bson.A, 0, len(params.States))
		for _, s := range params.States {
			states = append(states, string(s))
		}
		filter["state"] = bson.M{"$in": states}
	}
	if params.City != "" {
		filter["address.city_key"] = params.City
	}
	if params.Country != "" {
		filter["address.country_key"] = params.Country
	}
	if params.MinGuests > 0 {
		filter["max_guests"] = bson.M{"$gte": params.MinGuests}
	}
	if len(params.Amenities) > 0 {
		filter["amenities"] = bson.M{"$all": params.Amenities}
	}
	if len(params.PropertyTypes) > 0 {
		filter["property_type"] = bson.M{"$in": params.PropertyTypes}
	}
	if price := priceRange(params); len(price) > 0 {
		// drafts without pricing still pass, as in SearchParams.Matches
		filter["$or"] = bson.A{
			bson.M{"pricing": nil},
			bson.M{"pricing.base_numeric": price},
		}
	}
	return filter
}

// priceRange widens the decimal bounds by a cent so float rounding never drops a
// boundary match; the exact comparison happens in Matches.
func priceRange(params domainproperty.SearchParams) bson.M {
	const slack = 0.01
	price := bson.M{}
	if params.PriceMin.IsPositive() {
		v, _ := params.PriceMin.Float64()
		price["$gte"] = v - slack
	}
	if params.PriceMax.IsPositive() {
		v, _ := params.PriceMax.Float64()
		price["$lte"] = v + slack
	}
	return price
}

func searchSort(params domainproperty.SearchParams) bson.D {
	switch params.Sort {
	case domainproperty.SortByNewest:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	case domainproperty.SortByPriceDesc:
		return bson.D{{Key: "pricing.base_numeric", Value: -1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "pricing.base_numeric", Value: 1}, {Key: "_id", Value: 1}}
	}
}

type addressDocument struct {
	Line1      string  `bson:"line1"`
	Line2      string  `bson:"line2,omitempty"`
	City       string  `bson:"city"`
	CityKey    string  `bson:"city_key"`
	State      string  `bson:"state,omitempty"`
	Country    string  `bson:"country"`
	CountryKey string  `bson:"country_key"`
	Lat        float64 `bson:"lat"`
	Lon        float64 `bson:"lon"`
}

type propertyDocument struct {
	ID                   string           `bson:"_id"`
	HostID               string           `bson:"host_id"`
	Title                string           `bson:"title"`
	Description          string           `bson:"description"`
	PropertyType         string           `bson:"property_type"`
	Address              addressDocument  `bson:"address"`
	Amenities            []string         `bson:"amenities"`
	MaxGuests            int              `bson:"max_guests"`
	Bedrooms             int              `bson:"bedrooms"`
	Bathrooms            int              `bson:"bathrooms"`
	CancellationPolicyID string           `bson:"cancellation_policy"`
	Pricing              *pricingDocument `bson:"pricing"`
	Schedule             scheduleDocument `bson:"schedule"`
	Photos               []string         `bson:"photos"`
	State                string           `bson:"state"`
	CreatedAt            time.Time        `bson:"created_at"`
	UpdatedAt            time.Time        `bson:"updated_at"`
	Version              int64            `bson:"version"`
}

func newPropertyDocument(p *domainproperty.Property) propertyDocument {
	return propertyDocument{
		ID:           string(p.ID),
		HostID:       string(p.Host),
		Title:        p.Title,
		Description:  p.Description,
		PropertyType: p.PropertyType,
		Address: addressDocument{
			Line1:      p.Address.Line1,
			Line2:      p.Address.Line2,
			City:       p.Address.City,
			CityKey:    strings.ToLower(strings.TrimSpace(p.Address.City)),
			State:      p.Address.State,
			Country:    p.Address.Country,
			CountryKey: strings.ToLower(strings.TrimSpace(p.Address.Country)),
			Lat:        p.Address.Lat,
			Lon:        p.Address.Lon,
		},
		Amenities:            append([]string{}, p.Amenities...),
		MaxGuests:            p.MaxGuests,
		Bedrooms:             p.Bedrooms,
		Bathrooms:            p.Bathrooms,
		CancellationPolicyID: p.CancellationPolicyID,
		Pricing:              newPricingDocument(p.Pricing),
		Schedule:             newScheduleDocument(p.Schedule),
		Photos:               append([]string{}, p.Photos...),
		State:                string(p.State),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		Version:              p.Version,
	}
}

func (d propertyDocument) toAggregate() (*domainproperty.Property, error) {
	cfg, err := d.Pricing.toConfig()
	if err != nil {
		return nil, fmt.Errorf("mongo: property %s pricing: %w", d.ID, err)
	}
	return &domainproperty.Property{
		ID:           domainproperty.ID(d.ID),
		Host:         domainproperty.HostID(d.HostID),
		Title:        d.Title,
		Description:  d.Description,
		PropertyType: d.PropertyType,
		Address: domainproperty.Address{
			Line1:   d.Address.Line1,
			Line2:   d.Address.Line2,
			City:    d.Address.City,
			State:   d.Address.State,
			Country: d.Address.Country,
			Lat:     d.Address.Lat,
			Lon:     d.Address.Lon,
		},
		Amenities:            d.Amenities,
		MaxGuests:            d.MaxGuests,
		Bedrooms:             d.Bedrooms,
		Bathrooms:            d.Bathrooms,
		CancellationPolicyID: d.CancellationPolicyID,
		Pricing:              cfg,
		Schedule:             d.Schedule.toSchedule(),
		Photos:               d.Photos,
		State:                domainproperty.State(d.State),
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
		Version:              d.Version,
	}, nil
}

var _ domainproperty.Repository = (*PropertyRepository)(nil)
