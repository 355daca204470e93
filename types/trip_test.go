package types

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
)

func TestNewTrip(t *testing.T) {
	trip := NewTrip()

	assert.True(t, strings.HasPrefix(trip.TripID, "trip-"))
	assert.Len(t, trip.TripID, len("trip-")+12)
	assert.Equal(t, 1, trip.Version)
	assert.Equal(t, TripStatusConfirmed, trip.Status)
	assert.Equal(t, OriginExplicit, trip.OriginType)
	assert.Equal(t, 1.0, trip.TripConfidence)

	require.Len(t, trip.VersionHistory, 1)
	assert.Equal(t, 1, trip.VersionHistory[0].Version)
	assert.Equal(t, ChangeCreation, trip.VersionHistory[0].ChangeType)

	assert.NoError(t, trip.Validate())
}

func TestTrip_VersionHistoryStaysAligned(t *testing.T) {
	trip := NewTrip()

	const mutations = 4
	for i := 0; i < mutations; i++ {
		trip.AddVersionEntry("doc-1", ChangeAddition, []string{"air"})
	}

	assert.Equal(t, 1+mutations, trip.Version)
	require.Len(t, trip.VersionHistory, 1+mutations)
	for i, entry := range trip.VersionHistory {
		assert.Equal(t, i+1, entry.Version)
	}
}

func TestTrip_AddExtension(t *testing.T) {
	trip := NewTrip()

	require.NoError(t, trip.AddExtension("air", map[string]any{"carrier": "southwest"}))
	data, ok := trip.Extension("air")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"carrier": "southwest"}, data)

	// Overwriting a namespace is allowed and does not bump the version by
	// itself.
	require.NoError(t, trip.AddExtension("air", map[string]any{"carrier": "united"}))
	assert.Equal(t, 1, trip.Version)

	err := trip.AddExtension("traveler", map[string]any{"x": 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	err = trip.AddExtension("", map[string]any{"x": 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTrip_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Trip)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(tr *Trip) {},
		},
		{
			name:    "missing trip id",
			mutate:  func(tr *Trip) { tr.TripID = "" },
			wantErr: true,
		},
		{
			name:    "unknown status",
			mutate:  func(tr *Trip) { tr.Status = "scheduled" },
			wantErr: true,
		},
		{
			name:    "unknown origin",
			mutate:  func(tr *Trip) { tr.OriginType = "imported" },
			wantErr: true,
		},
		{
			name:    "confidence above one",
			mutate:  func(tr *Trip) { tr.TripConfidence = 1.2 },
			wantErr: true,
		},
		{
			name: "end date before start date",
			mutate: func(tr *Trip) {
				tr.StartDate = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
				tr.EndDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
			},
			wantErr: true,
		},
		{
			name:    "reserved extension namespace",
			mutate:  func(tr *Trip) { tr.Extensions["version"] = map[string]any{} },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := NewTrip()
			tt.mutate(trip)
			err := trip.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrip_UpdateStatus(t *testing.T) {
	t.Run("allowed transitions", func(t *testing.T) {
		trip := NewTrip() // confirmed
		require.NoError(t, trip.UpdateStatus(TripStatusInProgress, "doc-1"))
		require.NoError(t, trip.UpdateStatus(TripStatusCompleted, "doc-2"))

		assert.Equal(t, 3, trip.Version)
		last := trip.VersionHistory[len(trip.VersionHistory)-1]
		assert.Equal(t, ChangeModification, last.ChangeType)
		assert.Equal(t, []string{"status"}, last.ChangedFields)
	})

	t.Run("cancellation gets its own change type", func(t *testing.T) {
		trip := NewTrip()
		require.NoError(t, trip.UpdateStatus(TripStatusCancelled, "doc-1"))
		last := trip.VersionHistory[len(trip.VersionHistory)-1]
		assert.Equal(t, ChangeCancellation, last.ChangeType)
	})

	t.Run("terminal states reject further transitions", func(t *testing.T) {
		trip := NewTrip()
		require.NoError(t, trip.UpdateStatus(TripStatusCancelled, "doc-1"))

		err := trip.UpdateStatus(TripStatusConfirmed, "doc-2")
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
		assert.Equal(t, TripStatusCancelled, trip.Status)
		assert.Equal(t, 2, trip.Version)
	})

	t.Run("tentative cannot skip to in_progress", func(t *testing.T) {
		trip := NewTrip()
		trip.Status = TripStatusTentative
		err := trip.UpdateStatus(TripStatusInProgress, "doc-1")
		require.Error(t, err)
	})
}

func TestTrip_MergeCandidates(t *testing.T) {
	trip := NewTrip()
	trip.AddMergeCandidate(MergeCandidate{TripID: "trip-a", SimilarityScore: 0.91, MatchReasons: []string{"dates overlap"}})
	trip.AddMergeCandidate(MergeCandidate{TripID: "trip-b", SimilarityScore: 0.75})
	require.Len(t, trip.MergeCandidates, 2)

	trip.RemoveMergeCandidate("trip-a")
	require.Len(t, trip.MergeCandidates, 1)
	assert.Equal(t, "trip-b", trip.MergeCandidates[0].TripID)

	trip.RemoveMergeCandidate("trip-unknown")
	assert.Len(t, trip.MergeCandidates, 1)
}

func tripWithTravelExtensions(t *testing.T) *Trip {
	t.Helper()
	trip := NewTrip()
	require.NoError(t, trip.AddExtension("air", map[string]any{
		"confirmation_code": "ABC123",
		"segments": []any{
			map[string]any{
				"segment_id":    "seg-1",
				"flight_number": "SW1234",
				"departure":     map[string]any{"airport": "SFO"},
				"arrival":       map[string]any{"airport": "LAX"},
				"seat":          "14C",
			},
			map[string]any{
				"segment_id":    "seg-2",
				"flight_number": "SW5678",
				"departure":     map[string]any{"airport": "LAX"},
				"arrival":       map[string]any{"airport": "DEN"},
			},
		},
	}))
	require.NoError(t, trip.AddExtension("hotel_booking", map[string]any{
		"hotel_name": "Grand Hyatt",
		"checkin":    "2024-03-15",
	}))
	require.NoError(t, trip.AddExtension("marriott_hotel", map[string]any{
		"hotel_name": "Marriott Downtown",
	}))
	require.NoError(t, trip.AddExtension("car_rental", map[string]any{
		"company": "Hertz",
	}))
	return trip
}

func TestTrip_FlightSegments(t *testing.T) {
	trip := tripWithTravelExtensions(t)

	segments := trip.FlightSegments()
	require.Len(t, segments, 2)
	assert.Equal(t, "SW1234", segments[0].FlightNumber)
	assert.Equal(t, "14C", segments[0].Seat)
	assert.Equal(t, "SFO", segments[0].Departure["airport"])
	assert.Equal(t, "SW5678", segments[1].FlightNumber)

	assert.Empty(t, NewTrip().FlightSegments())
}

func TestTrip_HotelBookings(t *testing.T) {
	trip := tripWithTravelExtensions(t)

	bookings := trip.HotelBookings()
	require.Len(t, bookings, 2)
	// hotel_booking always sorts first, then other hotel namespaces.
	assert.Equal(t, "Grand Hyatt", bookings[0]["hotel_name"])
	assert.Equal(t, "Marriott Downtown", bookings[1]["hotel_name"])
}

func TestTrip_AllAirports(t *testing.T) {
	trip := tripWithTravelExtensions(t)
	assert.Equal(t, []string{"DEN", "LAX", "SFO"}, trip.AllAirports())
}

func TestTrip_Clone(t *testing.T) {
	trip := tripWithTravelExtensions(t)
	trip.Traveler = Traveler{ID: "user-1", Name: "Jane Doe", Email: "jane@example.com"}

	clone := trip.Clone()
	require.Equal(t, trip.TripID, clone.TripID)
	require.Equal(t, trip.Version, clone.Version)

	// Mutating the clone's nested extension data must not leak back.
	air := clone.Extensions["air"].(map[string]any)
	air["confirmation_code"] = "CHANGED"
	original := trip.Extensions["air"].(map[string]any)
	assert.Equal(t, "ABC123", original["confirmation_code"])
}

func TestTrip_DocumentRoundTrip(t *testing.T) {
	trip := tripWithTravelExtensions(t)
	trip.Traveler = Traveler{ID: "user-1", Name: "Jane Doe", Email: "jane@example.com", Phone: "415-555-0100"}
	trip.StartDate = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	trip.EndDate = time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	trip.Purpose = "Client onsite"
	trip.CreatedAt = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	trip.UpdatedAt = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	trip.AddSourceDocument(SourceDocument{
		DocumentID:        "doc-1",
		Type:              "flight_confirmation",
		ConfidenceScore:   0.95,
		ExtractedAt:       time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		ContributedFields: []string{"air"},
	})
	// AddSourceDocument touches updated_at.
	trip.UpdatedAt = time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)

	doc := trip.ToDocument()
	assert.Equal(t, trip.TripID, doc["trip_id"])
	assert.Equal(t, "2024-03-15", doc["start_date"])
	assert.Equal(t, "2024-03-01T09:30:00Z", doc["created_at"])
	assert.Equal(t, "user-1", doc["traveler_id"])

	rebuilt, err := TripFromDocument(doc)
	require.NoError(t, err)

	assert.Equal(t, trip.TripID, rebuilt.TripID)
	assert.Equal(t, trip.Version, rebuilt.Version)
	assert.Equal(t, trip.Status, rebuilt.Status)
	assert.Equal(t, trip.OriginType, rebuilt.OriginType)
	assert.Equal(t, trip.TripConfidence, rebuilt.TripConfidence)
	assert.Equal(t, trip.Purpose, rebuilt.Purpose)
	assert.Equal(t, trip.Traveler, rebuilt.Traveler)
	assert.True(t, trip.CreatedAt.Equal(rebuilt.CreatedAt))
	assert.True(t, trip.StartDate.Equal(rebuilt.StartDate))
	assert.True(t, trip.EndDate.Equal(rebuilt.EndDate))

	require.Len(t, rebuilt.SourceDocuments, 1)
	assert.Equal(t, "doc-1", rebuilt.SourceDocuments[0].DocumentID)
	require.Len(t, rebuilt.VersionHistory, len(trip.VersionHistory))
	assert.Equal(t, trip.VersionHistory[0].Version, rebuilt.VersionHistory[0].Version)

	// All four namespaces survive, and nothing else lands in Extensions.
	require.Len(t, rebuilt.Extensions, 4)
	air := rebuilt.Extensions["air"].(map[string]any)
	assert.Equal(t, "ABC123", air["confirmation_code"])
}

func TestTripFromDocument_MissingTripID(t *testing.T) {
	_, err := TripFromDocument(map[string]any{"status": "confirmed"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestTripFromDocument_Defaults(t *testing.T) {
	trip, err := TripFromDocument(map[string]any{"trip_id": "trip-abc"})
	require.NoError(t, err)
	assert.Equal(t, 1, trip.Version)
	assert.Equal(t, TripStatusConfirmed, trip.Status)
	assert.Equal(t, OriginExplicit, trip.OriginType)
	assert.Equal(t, 1.0, trip.TripConfidence)
	assert.True(t, trip.StartDate.IsZero())
	assert.Empty(t, trip.Extensions)
}

func TestTripBuilder(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)

	trip, err := NewTripBuilder().
		WithTraveler("user-1", "Jane Doe", "jane@example.com", "").
		WithDates(start, end).
		WithPurpose("Conference").
		WithStatus(TripStatusTentative).
		WithOriginType(OriginDerived, 0.82).
		WithExtension("air", map[string]any{"confirmation_code": "XY12"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "user-1", trip.Traveler.ID)
	assert.Equal(t, TripStatusTentative, trip.Status)
	assert.Equal(t, OriginDerived, trip.OriginType)
	assert.Equal(t, 0.82, trip.TripConfidence)
	assert.True(t, trip.StartDate.Equal(start))
	_, ok := trip.Extension("air")
	assert.True(t, ok)
}

func TestTripBuilder_RequiresTraveler(t *testing.T) {
	_, err := NewTripBuilder().WithPurpose("no traveler").Build()
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}
