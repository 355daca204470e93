package store

import (
	"context"
	"time"

	"github.com/TripAtlas/trip-atlas-backend/types"
)

// TripStore is the persistence contract for the trip aggregate. Every
// implementation must honor optimistic concurrency: UpdateTrip only commits
// when the stored version still equals expectedVersion, and returns a version
// conflict error otherwise.
type TripStore interface {
	// CreateTrip persists a new trip. Returns an already-exists error when
	// the trip ID is taken.
	CreateTrip(ctx context.Context, trip *types.Trip) error

	// GetTrip fetches a trip by ID. Returns a not-found error when absent.
	GetTrip(ctx context.Context, tripID string) (*types.Trip, error)

	// UpdateTrip applies mutate to the current state of the trip and commits
	// the result, but only if the stored version still equals
	// expectedVersion. The mutate callback is responsible for recording its
	// change in the version history so the version advances. Returns the
	// committed trip.
	UpdateTrip(ctx context.Context, tripID string, expectedVersion int, mutate func(*types.Trip) error) (*types.Trip, error)

	// DeleteTrip removes a trip. Returns a not-found error when absent.
	DeleteTrip(ctx context.Context, tripID string) error

	// ListTripsByTraveler returns the traveler's trips ordered by start date,
	// newest first. Zero from/to bounds mean unbounded on that side.
	ListTripsByTraveler(ctx context.Context, travelerID string, from, to time.Time) ([]*types.Trip, error)

	// ListTripsByStatus returns trips in the given status ordered by last
	// update, newest first. A zero updatedSince means no lower bound.
	ListTripsByStatus(ctx context.Context, status types.TripStatus, updatedSince time.Time) ([]*types.Trip, error)

	// FindMergeCandidates returns derived trips whose confidence is below
	// threshold, the ones worth reviewing for duplicates. An empty travelerID
	// scans across all travelers.
	FindMergeCandidates(ctx context.Context, travelerID string, threshold float64) ([]*types.Trip, error)
}

// DocumentStore persists ingestion metadata for uploaded documents. Raw bytes
// live in object storage, only the metadata goes here.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *types.DocumentMetadata) error
	GetDocument(ctx context.Context, documentID string) (*types.DocumentMetadata, error)
	UpdateDocument(ctx context.Context, doc *types.DocumentMetadata) error
	DeleteDocument(ctx context.Context, documentID string) error

	// ListDocumentsByTrip returns all documents attached to a trip.
	ListDocumentsByTrip(ctx context.Context, tripID string) ([]*types.DocumentMetadata, error)

	// ListDocumentsByStatus returns documents in a processing state, oldest
	// upload first, so pipeline workers drain the backlog in order.
	ListDocumentsByStatus(ctx context.Context, status types.ProcessingStatus) ([]*types.DocumentMetadata, error)
}

// ObjectStorage is the facade over the bucket holding raw document bytes.
type ObjectStorage interface {
	// Upload stores data under key and returns the object's URL.
	Upload(ctx context.Context, key string, data []byte) (string, error)

	// Download fetches the object's bytes and detected content type.
	Download(ctx context.Context, key string) ([]byte, string, error)

	Delete(ctx context.Context, key string) error

	// ListKeys returns every object key under prefix.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
