package types

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
)

type TripStatus string

const (
	TripStatusConfirmed  TripStatus = "confirmed"
	TripStatusTentative  TripStatus = "tentative"
	TripStatusCancelled  TripStatus = "cancelled"
	TripStatusInProgress TripStatus = "in_progress"
	TripStatusCompleted  TripStatus = "completed"
)

// IsValidTransition checks if a status transition is allowed
func (ts TripStatus) IsValidTransition(newStatus TripStatus) bool {
	transitions := map[TripStatus][]TripStatus{
		TripStatusTentative: {
			TripStatusConfirmed,
			TripStatusCancelled,
		},
		TripStatusConfirmed: {
			TripStatusTentative,
			TripStatusInProgress,
			TripStatusCompleted,
			TripStatusCancelled,
		},
		TripStatusInProgress: {
			TripStatusCompleted,
			TripStatusCancelled,
		},
		TripStatusCompleted: {}, // Terminal state
		TripStatusCancelled: {}, // Terminal state
	}

	allowedTransitions, exists := transitions[ts]
	if !exists {
		return false
	}

	for _, allowed := range allowedTransitions {
		if allowed == newStatus {
			return true
		}
	}
	return false
}

// String provides a string representation of the status
func (ts TripStatus) String() string {
	return string(ts)
}

// IsValid checks if the status is a valid trip status
func (ts TripStatus) IsValid() bool {
	switch ts {
	case TripStatusConfirmed, TripStatusTentative, TripStatusCancelled, TripStatusInProgress, TripStatusCompleted:
		return true
	default:
		return false
	}
}

type OriginType string

const (
	OriginExplicit OriginType = "explicit"
	OriginDerived  OriginType = "derived"
)

func (ot OriginType) IsValid() bool {
	switch ot {
	case OriginExplicit, OriginDerived:
		return true
	default:
		return false
	}
}

type ChangeType string

const (
	ChangeCreation     ChangeType = "creation"
	ChangeAddition     ChangeType = "addition"
	ChangeModification ChangeType = "modification"
	ChangeDeletion     ChangeType = "deletion"
	ChangeCancellation ChangeType = "cancellation"
)

func (ct ChangeType) IsValid() bool {
	switch ct {
	case ChangeCreation, ChangeAddition, ChangeModification, ChangeDeletion, ChangeCancellation:
		return true
	default:
		return false
	}
}

// Traveler identifies the person the trip belongs to.
type Traveler struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// SourceDocument records which ingested document contributed data to a trip.
// The list on a trip is append-only provenance.
type SourceDocument struct {
	DocumentID        string    `json:"document_id"`
	Type              string    `json:"type"`
	ConfidenceScore   float64   `json:"confidence_score"`
	ExtractedAt       time.Time `json:"extracted_at"`
	ContributedFields []string  `json:"contributed_fields"`
}

// VersionEntry is one row of a trip's append-only version history.
type VersionEntry struct {
	Version       int        `json:"version"`
	Timestamp     time.Time  `json:"timestamp"`
	DocumentID    string     `json:"document_id"`
	ChangeType    ChangeType `json:"change_type"`
	ChangedFields []string   `json:"changed_fields"`
}

// MergeCandidate marks another trip suspected to be a duplicate of this one.
type MergeCandidate struct {
	TripID          string   `json:"trip_id"`
	SimilarityScore float64  `json:"similarity_score"`
	MatchReasons    []string `json:"match_reasons"`
}

// FlightSegment is the shape flight data takes inside airline extensions.
// Departure and Arrival stay as maps because each provider nests its own
// airport/time fields differently.
type FlightSegment struct {
	SegmentID    string         `json:"segment_id"`
	Version      int            `json:"version"`
	Status       string         `json:"status"`
	FlightNumber string         `json:"flight_number"`
	Departure    map[string]any `json:"departure"`
	Arrival      map[string]any `json:"arrival"`
	Seat         string         `json:"seat,omitempty"`
	FareClass    string         `json:"fare_class,omitempty"`
}

// Trip is the flexible trip aggregate: a small fixed core plus arbitrary
// namespaced extension data, with append-only version history, provenance
// and duplicate-detection metadata.
type Trip struct {
	TripID    string     `json:"trip_id"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Status    TripStatus `json:"status"`
	StartDate time.Time  `json:"start_date,omitzero"`
	EndDate   time.Time  `json:"end_date,omitzero"`
	Purpose   string     `json:"purpose,omitempty"`
	Traveler  Traveler   `json:"traveler"`

	// OriginType records whether the trip was explicitly created or derived
	// from ingested documents; TripConfidence is only meaningful for derived
	// trips.
	OriginType     OriginType `json:"origin_type"`
	TripConfidence float64    `json:"trip_confidence"`

	// Extensions maps a provider namespace to arbitrary nested data.
	// Namespace keys must never collide with core field names.
	Extensions map[string]any `json:"extensions,omitempty"`

	SourceDocuments []SourceDocument `json:"source_documents,omitempty"`
	VersionHistory  []VersionEntry   `json:"version_history"`
	MergeCandidates []MergeCandidate `json:"merge_candidates,omitempty"`
}

// coreTripFields are the keys reserved for the fixed core in the flattened
// document form. Extension namespaces may not use any of these.
var coreTripFields = map[string]struct{}{
	"trip_id":          {},
	"version":          {},
	"created_at":       {},
	"updated_at":       {},
	"status":           {},
	"start_date":       {},
	"end_date":         {},
	"purpose":          {},
	"traveler":         {},
	"traveler_id":      {},
	"origin_type":      {},
	"trip_confidence":  {},
	"source_documents": {},
	"version_history":  {},
	"merge_candidates": {},
}

// IsCoreTripField reports whether name is reserved for the trip core.
func IsCoreTripField(name string) bool {
	_, ok := coreTripFields[name]
	return ok
}

func generateTripID() string {
	return "trip-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// NewTrip creates a trip with a generated ID, version 1 and a creation
// history entry.
func NewTrip() *Trip {
	now := time.Now().UTC()
	return &Trip{
		TripID:         generateTripID(),
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         TripStatusConfirmed,
		OriginType:     OriginExplicit,
		TripConfidence: 1.0,
		Extensions:     make(map[string]any),
		VersionHistory: []VersionEntry{
			{
				Version:       1,
				Timestamp:     now,
				ChangeType:    ChangeCreation,
				ChangedFields: []string{"trip_id"},
			},
		},
	}
}

func (t *Trip) touch() {
	t.UpdatedAt = time.Now().UTC()
}

// Validate checks the core fields of the trip.
func (t *Trip) Validate() error {
	if t.TripID == "" {
		return apperrors.ValidationFailed("missing trip_id", "trip_id is required")
	}
	if !t.Status.IsValid() {
		return apperrors.ValidationFailed("invalid status", string(t.Status))
	}
	if !t.OriginType.IsValid() {
		return apperrors.ValidationFailed("invalid origin_type", string(t.OriginType))
	}
	if t.TripConfidence < 0 || t.TripConfidence > 1 {
		return apperrors.ValidationFailed("invalid trip_confidence", fmt.Sprintf("%v is outside [0,1]", t.TripConfidence))
	}
	if !t.StartDate.IsZero() && !t.EndDate.IsZero() && t.EndDate.Before(t.StartDate) {
		return apperrors.ValidationFailed("invalid dates", "end_date precedes start_date")
	}
	for namespace := range t.Extensions {
		if IsCoreTripField(namespace) {
			return apperrors.ValidationFailed("extension namespace collides with core field", namespace)
		}
	}
	return nil
}

// AddExtension inserts or overwrites a namespaced extension. It only touches
// updated_at; recording the change in the version history is the caller's
// job via AddVersionEntry, so several extension writes from one document can
// commit as a single version bump.
func (t *Trip) AddExtension(namespace string, data any) error {
	if namespace == "" {
		return apperrors.ValidationFailed("empty extension namespace", "")
	}
	if IsCoreTripField(namespace) {
		return apperrors.ValidationFailed("extension namespace collides with core field", namespace)
	}
	if t.Extensions == nil {
		t.Extensions = make(map[string]any)
	}
	t.Extensions[namespace] = data
	t.touch()
	return nil
}

// Extension returns the data stored under namespace, if any.
func (t *Trip) Extension(namespace string) (any, bool) {
	data, ok := t.Extensions[namespace]
	return data, ok
}

// AddVersionEntry bumps the trip version and appends a history row. Exactly
// one entry per successful mutating operation keeps version ==
// len(version_history) at all times.
func (t *Trip) AddVersionEntry(documentID string, changeType ChangeType, changedFields []string) VersionEntry {
	t.Version++
	entry := VersionEntry{
		Version:       t.Version,
		Timestamp:     time.Now().UTC(),
		DocumentID:    documentID,
		ChangeType:    changeType,
		ChangedFields: changedFields,
	}
	t.VersionHistory = append(t.VersionHistory, entry)
	t.touch()
	return entry
}

// UpdateStatus transitions the trip to newStatus, enforcing transition
// legality (completed and cancelled are terminal), and records the change.
func (t *Trip) UpdateStatus(newStatus TripStatus, documentID string) error {
	if !newStatus.IsValid() {
		return apperrors.ValidationFailed("invalid status", string(newStatus))
	}
	if !t.Status.IsValidTransition(newStatus) {
		return apperrors.ValidationFailed("invalid status transition",
			fmt.Sprintf("cannot transition from %s to %s", t.Status, newStatus))
	}
	t.Status = newStatus
	changeType := ChangeModification
	if newStatus == TripStatusCancelled {
		changeType = ChangeCancellation
	}
	t.AddVersionEntry(documentID, changeType, []string{"status"})
	return nil
}

// AddSourceDocument appends a provenance record.
func (t *Trip) AddSourceDocument(doc SourceDocument) {
	t.SourceDocuments = append(t.SourceDocuments, doc)
	t.touch()
}

// AddMergeCandidate records another trip as a probable duplicate.
func (t *Trip) AddMergeCandidate(candidate MergeCandidate) {
	t.MergeCandidates = append(t.MergeCandidates, candidate)
	t.touch()
}

// RemoveMergeCandidate drops all candidates pointing at tripID.
func (t *Trip) RemoveMergeCandidate(tripID string) {
	filtered := t.MergeCandidates[:0]
	for _, candidate := range t.MergeCandidates {
		if candidate.TripID != tripID {
			filtered = append(filtered, candidate)
		}
	}
	t.MergeCandidates = filtered
	t.touch()
}

// sortedExtensionNamespaces keeps the projections deterministic.
func (t *Trip) sortedExtensionNamespaces() []string {
	namespaces := make([]string, 0, len(t.Extensions))
	for namespace := range t.Extensions {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	return namespaces
}

// FlightSegments scans every extension for a "segments" key and flattens the
// results. Entries that don't decode as a segment are skipped.
func (t *Trip) FlightSegments() []FlightSegment {
	var segments []FlightSegment
	for _, namespace := range t.sortedExtensionNamespaces() {
		data, ok := t.Extensions[namespace].(map[string]any)
		if !ok {
			continue
		}
		raw, ok := data["segments"].([]any)
		if !ok {
			continue
		}
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			var segment FlightSegment
			if err := decodeMap(m, &segment); err != nil {
				continue
			}
			segments = append(segments, segment)
		}
	}
	return segments
}

// HotelBookings returns the hotel_booking extension plus any other namespace
// whose name contains "hotel".
func (t *Trip) HotelBookings() []map[string]any {
	var bookings []map[string]any
	if data, ok := t.Extensions["hotel_booking"].(map[string]any); ok {
		bookings = append(bookings, data)
	}
	for _, namespace := range t.sortedExtensionNamespaces() {
		if namespace == "hotel_booking" || !strings.Contains(strings.ToLower(namespace), "hotel") {
			continue
		}
		if data, ok := t.Extensions[namespace].(map[string]any); ok {
			bookings = append(bookings, data)
		}
	}
	return bookings
}

// AllAirports returns the sorted union of departure and arrival airport codes
// across all flight segments.
func (t *Trip) AllAirports() []string {
	seen := make(map[string]struct{})
	for _, segment := range t.FlightSegments() {
		for _, endpoint := range []map[string]any{segment.Departure, segment.Arrival} {
			if airport, ok := endpoint["airport"].(string); ok && airport != "" {
				seen[airport] = struct{}{}
			}
		}
	}
	airports := make([]string, 0, len(seen))
	for airport := range seen {
		airports = append(airports, airport)
	}
	sort.Strings(airports)
	return airports
}

// Clone returns a deep copy of the trip.
func (t *Trip) Clone() *Trip {
	var clone Trip
	data, err := json.Marshal(t)
	if err != nil {
		panic(fmt.Sprintf("trip %s is not serializable: %v", t.TripID, err))
	}
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("trip %s clone failed: %v", t.TripID, err))
	}
	return &clone
}

func (t *Trip) String() string {
	return fmt.Sprintf("Trip(id=%s, version=%d, status=%s)", t.TripID, t.Version, t.Status)
}

// decodeMap converts a JSON-like map into a typed struct.
func decodeMap(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
