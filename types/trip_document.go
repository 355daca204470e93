package types

import (
	"encoding/json"
	"time"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
)

// The canonical persisted shape of a trip is a single flat map: the core
// fields merged with one top-level key per extension namespace. This is the
// exact representation the field registry ingests, so the aggregate and the
// registry share one JSON-like form.

const (
	timestampLayout = time.RFC3339
	dateLayout      = "2006-01-02"
)

// ToDocument flattens the trip into its canonical document form. Timestamps
// render as RFC 3339 strings and dates as YYYY-MM-DD, so the field registry
// classifies them as datetime and date respectively.
func (t *Trip) ToDocument() map[string]any {
	doc := map[string]any{
		"trip_id":         t.TripID,
		"version":         t.Version,
		"created_at":      t.CreatedAt.UTC().Format(timestampLayout),
		"updated_at":      t.UpdatedAt.UTC().Format(timestampLayout),
		"status":          string(t.Status),
		"origin_type":     string(t.OriginType),
		"trip_confidence": t.TripConfidence,
	}

	if !t.StartDate.IsZero() {
		doc["start_date"] = t.StartDate.UTC().Format(dateLayout)
	}
	if !t.EndDate.IsZero() {
		doc["end_date"] = t.EndDate.UTC().Format(dateLayout)
	}
	if t.Purpose != "" {
		doc["purpose"] = t.Purpose
	}

	if t.Traveler != (Traveler{}) {
		doc["traveler"] = jsonValue(t.Traveler)
		// Duplicated at the top level for secondary-index lookups.
		doc["traveler_id"] = t.Traveler.ID
	}

	for namespace, data := range t.Extensions {
		doc[namespace] = jsonValue(data)
	}

	if len(t.SourceDocuments) > 0 {
		doc["source_documents"] = jsonValue(t.SourceDocuments)
	}
	if len(t.VersionHistory) > 0 {
		doc["version_history"] = jsonValue(t.VersionHistory)
	}
	if len(t.MergeCandidates) > 0 {
		doc["merge_candidates"] = jsonValue(t.MergeCandidates)
	}

	return doc
}

// TripFromDocument rebuilds a trip from its canonical document form. Any top
// level key that is not a core field is treated as an extension namespace.
func TripFromDocument(doc map[string]any) (*Trip, error) {
	tripID, _ := doc["trip_id"].(string)
	if tripID == "" {
		return nil, apperrors.ValidationFailed("missing trip_id", "trip_id is required")
	}

	t := &Trip{
		TripID:         tripID,
		Version:        intField(doc, "version", 1),
		CreatedAt:      timestampField(doc, "created_at"),
		UpdatedAt:      timestampField(doc, "updated_at"),
		Status:         TripStatusConfirmed,
		OriginType:     OriginExplicit,
		TripConfidence: 1.0,
		StartDate:      dateField(doc, "start_date"),
		EndDate:        dateField(doc, "end_date"),
		Extensions:     make(map[string]any),
	}

	if status, ok := doc["status"].(string); ok && status != "" {
		t.Status = TripStatus(status)
	}
	if origin, ok := doc["origin_type"].(string); ok && origin != "" {
		t.OriginType = OriginType(origin)
	}
	if purpose, ok := doc["purpose"].(string); ok {
		t.Purpose = purpose
	}
	if confidence, ok := numberField(doc, "trip_confidence"); ok {
		t.TripConfidence = confidence
	}

	if traveler, ok := doc["traveler"].(map[string]any); ok {
		if err := decodeMap(traveler, &t.Traveler); err != nil {
			return nil, apperrors.ValidationFailed("malformed traveler", err.Error())
		}
	}

	if err := decodeSlice(doc["source_documents"], &t.SourceDocuments); err != nil {
		return nil, apperrors.ValidationFailed("malformed source_documents", err.Error())
	}
	if err := decodeSlice(doc["version_history"], &t.VersionHistory); err != nil {
		return nil, apperrors.ValidationFailed("malformed version_history", err.Error())
	}
	if err := decodeSlice(doc["merge_candidates"], &t.MergeCandidates); err != nil {
		return nil, apperrors.ValidationFailed("malformed merge_candidates", err.Error())
	}

	for key, value := range doc {
		if IsCoreTripField(key) {
			continue
		}
		t.Extensions[key] = value
	}

	return t, nil
}

// jsonValue deep-copies v into plain JSON-like values (maps, slices, strings,
// float64 numbers), severing shared references with the source.
func jsonValue(v any) any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

func decodeSlice(raw any, out any) error {
	if raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func intField(doc map[string]any, key string, fallback int) int {
	if n, ok := numberField(doc, key); ok {
		return int(n)
	}
	return fallback
}

func numberField(doc map[string]any, key string) (float64, bool) {
	switch n := doc[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func timestampField(doc map[string]any, key string) time.Time {
	s, ok := doc[key].(string)
	if !ok {
		return time.Time{}
	}
	ts, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func dateField(doc map[string]any, key string) time.Time {
	s, ok := doc[key].(string)
	if !ok {
		return time.Time{}
	}
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d.UTC()
	}
	// Some providers hand us full timestamps where a date is expected.
	if ts, err := time.Parse(timestampLayout, s); err == nil {
		return ts.UTC()
	}
	return time.Time{}
}
