package property

import (
	"time"

	"stayly/internal/domain/shared/daterange"
)

type PropertyCreated struct {
	PropertyID ID        `json:"property_id"`
	HostID     HostID    `json:"host_id"`
	At         time.Time `json:"at"`
}

func (e PropertyCreated) EventName() string     { return "property.created" }
func (e PropertyCreated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyCreated) OccurredAt() time.Time { return e.At }

type PropertyUpdated struct {
	PropertyID ID        `json:"property_id"`
	At         time.Time `json:"at"`
}

func (e PropertyUpdated) EventName() string     { return "property.updated" }
func (e PropertyUpdated) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyUpdated) OccurredAt() time.Time { return e.At }

type PricingChanged struct {
	PropertyID  ID        `json:"property_id"`
	NightlyRate string    `json:"nightly_rate"`
	Currency    string    `json:"currency"`
	At          time.Time `json:"at"`
}

func (e PricingChanged) EventName() string     { return "property.pricing_changed" }
func (e PricingChanged) AggregateID() string   { return string(e.PropertyID) }
func (e PricingChanged) OccurredAt() time.Time { return e.At }

type ScheduleChanged struct {
	PropertyID ID                  `json:"property_id"`
	Change     string              `json:"change"`
	Range      daterange.DateRange `json:"range"`
	At         time.Time           `json:"at"`
}

func (e ScheduleChanged) EventName() string     { return "property.schedule_changed" }
func (e ScheduleChanged) AggregateID() string   { return string(e.PropertyID) }
func (e ScheduleChanged) OccurredAt() time.Time { return e.At }

type PropertyPublished struct {
	PropertyID ID        `json:"property_id"`
	HostID     HostID    `json:"host_id"`
	At         time.Time `json:"at"`
}

func (e PropertyPublished) EventName() string     { return "property.published" }
func (e PropertyPublished) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyPublished) OccurredAt() time.Time { return e.At }

type PropertyUnlisted struct {
	PropertyID ID        `json:"property_id"`
	Reason     string    `json:"reason"`
	At         time.Time `json:"at"`
}

func (e PropertyUnlisted) EventName() string     { return "property.unlisted" }
func (e PropertyUnlisted) AggregateID() string   { return string(e.PropertyID) }
func (e PropertyUnlisted) OccurredAt() time.Time { return e.At }
