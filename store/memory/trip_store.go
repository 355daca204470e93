// Package memory provides in-memory store implementations. They back unit
// tests and single-process deployments; everything is guarded by a mutex and
// callers only ever see deep copies of stored state.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
	"github.com/TripAtlas/trip-atlas-backend/logger"
	"github.com/TripAtlas/trip-atlas-backend/pkg/metrics"
	"github.com/TripAtlas/trip-atlas-backend/store"
	"github.com/TripAtlas/trip-atlas-backend/types"
)

// Ensure TripStore implements store.TripStore.
var _ store.TripStore = (*TripStore)(nil)

// TripStore keeps trips in a map keyed by trip ID.
type TripStore struct {
	mu    sync.RWMutex
	trips map[string]*types.Trip
}

// NewTripStore creates an empty in-memory trip store.
func NewTripStore() *TripStore {
	return &TripStore{trips: make(map[string]*types.Trip)}
}

// CreateTrip implements store.TripStore.
func (s *TripStore) CreateTrip(ctx context.Context, trip *types.Trip) error {
	if err := trip.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.trips[trip.TripID]; exists {
		return apperrors.AlreadyExists("trip", trip.TripID)
	}
	s.trips[trip.TripID] = trip.Clone()

	logger.GetLogger().Debugw("Created trip",
		"tripId", trip.TripID,
		"travelerId", trip.Traveler.ID,
		"travelerEmail", logger.MaskEmail(trip.Traveler.Email))
	return nil
}

// GetTrip implements store.TripStore.
func (s *TripStore) GetTrip(ctx context.Context, tripID string) (*types.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	trip, ok := s.trips[tripID]
	if !ok {
		return nil, apperrors.NotFound("trip", tripID)
	}
	return trip.Clone(), nil
}

// UpdateTrip implements store.TripStore. The mutate callback runs against a
// private copy, so a failed or conflicting update never leaves partial state
// behind.
func (s *TripStore) UpdateTrip(ctx context.Context, tripID string, expectedVersion int, mutate func(*types.Trip) error) (*types.Trip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.trips[tripID]
	if !ok {
		return nil, apperrors.NotFound("trip", tripID)
	}
	if current.Version != expectedVersion {
		metrics.VersionConflicts.Inc()
		logger.GetLogger().Warnw("Version conflict on trip update",
			"tripId", tripID, "expectedVersion", expectedVersion, "actualVersion", current.Version)
		return nil, apperrors.VersionConflict(tripID, expectedVersion, current.Version)
	}

	updated := current.Clone()
	if err := mutate(updated); err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if updated.Version != expectedVersion+1 || updated.Version != len(updated.VersionHistory) {
		return nil, apperrors.ValidationFailed("version history out of step",
			"every update must record exactly one version entry")
	}

	s.trips[tripID] = updated
	return updated.Clone(), nil
}

// DeleteTrip implements store.TripStore.
func (s *TripStore) DeleteTrip(ctx context.Context, tripID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trips[tripID]; !ok {
		return apperrors.NotFound("trip", tripID)
	}
	delete(s.trips, tripID)
	return nil
}

// ListTripsByTraveler implements store.TripStore.
func (s *TripStore) ListTripsByTraveler(ctx context.Context, travelerID string, from, to time.Time) ([]*types.Trip, error) {
	trips := s.collect(func(t *types.Trip) bool {
		if t.Traveler.ID != travelerID {
			return false
		}
		if !from.IsZero() && t.StartDate.Before(from) {
			return false
		}
		if !to.IsZero() && t.StartDate.After(to) {
			return false
		}
		return true
	})
	sort.Slice(trips, func(i, j int) bool { return trips[i].StartDate.After(trips[j].StartDate) })
	return trips, nil
}

// ListTripsByStatus implements store.TripStore.
func (s *TripStore) ListTripsByStatus(ctx context.Context, status types.TripStatus, updatedSince time.Time) ([]*types.Trip, error) {
	trips := s.collect(func(t *types.Trip) bool {
		return t.Status == status && (updatedSince.IsZero() || !t.UpdatedAt.Before(updatedSince))
	})
	sort.Slice(trips, func(i, j int) bool { return trips[i].UpdatedAt.After(trips[j].UpdatedAt) })
	return trips, nil
}

// FindMergeCandidates implements store.TripStore.
func (s *TripStore) FindMergeCandidates(ctx context.Context, travelerID string, threshold float64) ([]*types.Trip, error) {
	trips := s.collect(func(t *types.Trip) bool {
		if travelerID != "" && t.Traveler.ID != travelerID {
			return false
		}
		return t.OriginType == types.OriginDerived && t.TripConfidence < threshold
	})
	sort.Slice(trips, func(i, j int) bool { return trips[i].TripConfidence < trips[j].TripConfidence })
	return trips, nil
}

func (s *TripStore) collect(keep func(*types.Trip) bool) []*types.Trip {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var trips []*types.Trip
	for _, trip := range s.trips {
		if keep(trip) {
			trips = append(trips, trip.Clone())
		}
	}
	return trips
}
