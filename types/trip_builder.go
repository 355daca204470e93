package types

import (
	"time"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
)

// TripBuilder assembles a trip step by step and validates it on Build.
type TripBuilder struct {
	trip *Trip
	err  error
}

// NewTripBuilder starts a builder around a freshly created trip.
func NewTripBuilder() *TripBuilder {
	return &TripBuilder{trip: NewTrip()}
}

func (b *TripBuilder) WithTraveler(id, name, email, phone string) *TripBuilder {
	b.trip.Traveler = Traveler{ID: id, Name: name, Email: email, Phone: phone}
	return b
}

func (b *TripBuilder) WithDates(start, end time.Time) *TripBuilder {
	b.trip.StartDate = start
	b.trip.EndDate = end
	return b
}

func (b *TripBuilder) WithPurpose(purpose string) *TripBuilder {
	b.trip.Purpose = purpose
	return b
}

func (b *TripBuilder) WithStatus(status TripStatus) *TripBuilder {
	b.trip.Status = status
	return b
}

// WithOriginType marks the trip explicit or derived. Confidence only carries
// meaning for derived trips but is stored either way.
func (b *TripBuilder) WithOriginType(origin OriginType, confidence float64) *TripBuilder {
	b.trip.OriginType = origin
	b.trip.TripConfidence = confidence
	return b
}

func (b *TripBuilder) WithExtension(namespace string, data any) *TripBuilder {
	if b.err == nil {
		b.err = b.trip.AddExtension(namespace, data)
	}
	return b
}

// Build validates and returns the assembled trip.
func (b *TripBuilder) Build() (*Trip, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.trip.Validate(); err != nil {
		return nil, err
	}
	if b.trip.Traveler.ID == "" {
		return nil, apperrors.ValidationFailed("missing traveler", "traveler id is required")
	}
	return b.trip, nil
}
