package registry

import (
	"fmt"
	"strings"
	"time"
)

// Stability classifies how consistently a field appears across the corpus.
type Stability string

const (
	StabilityStable     Stability = "stable"     // >= 80% of documents
	StabilityCommon     Stability = "common"     // >= 40%
	StabilityOccasional Stability = "occasional" // >= 10%
	StabilityRare       Stability = "rare"       // everything else
)

func stabilityFor(occurrencePercentage float64) Stability {
	switch {
	case occurrencePercentage >= 80:
		return StabilityStable
	case occurrencePercentage >= 40:
		return StabilityCommon
	case occurrencePercentage >= 10:
		return StabilityOccasional
	default:
		return StabilityRare
	}
}

const maxExamples = 5

// FieldExample is one sampled value for a field.
type FieldExample struct {
	Value            string    `json:"value" yaml:"value"`
	SourceDocumentID string    `json:"source_document_id" yaml:"source_document_id"`
	ExtractedAt      time.Time `json:"extracted_at" yaml:"extracted_at"`
}

// FieldRelation links a field to another one that tends to appear with it.
type FieldRelation struct {
	FieldPath           string    `json:"field_path" yaml:"field_path"`
	CorrelationStrength float64   `json:"correlation_strength" yaml:"correlation_strength"`
	DiscoveredAt        time.Time `json:"discovered_at" yaml:"discovered_at"`
}

// Entry is one discovered field: its dotted/bracketed path, inferred data
// type, corpus-wide occurrence statistics and stability classification.
type Entry struct {
	Path      string `json:"path" yaml:"path"`
	FieldName string `json:"field_name" yaml:"field_name"`

	// DataType is fixed by the first successfully typed occurrence and never
	// overwritten afterward.
	DataType       DataType `json:"data_type" yaml:"data_type"`
	TypeConfidence float64  `json:"type_confidence" yaml:"type_confidence"`

	SourceNamespace string    `json:"source_namespace,omitempty" yaml:"source_namespace,omitempty"`
	FirstSeen       time.Time `json:"first_seen" yaml:"first_seen"`
	LastSeen        time.Time `json:"last_seen" yaml:"last_seen"`

	OccurrenceCount      int       `json:"occurrence_count" yaml:"occurrence_count"`
	TotalDocuments       int       `json:"total_documents" yaml:"total_documents"`
	OccurrencePercentage float64   `json:"occurrence_percentage" yaml:"occurrence_percentage"`
	Stability            Stability `json:"stability" yaml:"stability"`

	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	IsRequired   bool   `json:"is_required" yaml:"is_required"`
	IsIndexed    bool   `json:"is_indexed" yaml:"is_indexed"`
	IsSearchable bool   `json:"is_searchable" yaml:"is_searchable"`

	Examples      []FieldExample  `json:"examples,omitempty" yaml:"examples,omitempty"`
	Statistics    FieldStatistics `json:"statistics" yaml:"statistics"`
	RelatedFields []FieldRelation `json:"related_fields,omitempty" yaml:"related_fields,omitempty"`
	Tags          []string        `json:"tags,omitempty" yaml:"tags,omitempty"`
}

func newEntry(path, namespace string) *Entry {
	now := time.Now().UTC()
	return &Entry{
		Path:            path,
		FieldName:       fieldNameFromPath(path),
		DataType:        TypeUnknown,
		SourceNamespace: namespace,
		FirstSeen:       now,
		LastSeen:        now,
		Stability:       StabilityRare,
		IsSearchable:    true,
	}
}

// fieldNameFromPath extracts the leaf name of a field path.
func fieldNameFromPath(path string) string {
	if path == "" {
		return "unknown"
	}
	parts := strings.Split(path, ".")
	return strings.TrimSuffix(parts[len(parts)-1], "[]")
}

// AddOccurrence records one observation of this field. It never fails:
// malformed or nil input degrades to the unknown type instead of erroring.
// totalDocuments is the corpus size at observation time.
func (e *Entry) AddOccurrence(documentID string, value any, totalDocuments int) {
	e.OccurrenceCount++
	e.LastSeen = time.Now().UTC()

	if totalDocuments > 0 {
		e.TotalDocuments = totalDocuments
		e.OccurrencePercentage = float64(e.OccurrenceCount) / float64(totalDocuments) * 100
	}

	if len(e.Examples) < maxExamples {
		e.Examples = append(e.Examples, FieldExample{
			Value:            Stringify(value),
			SourceDocumentID: documentID,
			ExtractedAt:      e.LastSeen,
		})
	}

	e.Statistics.Record(Stringify(value), e.OccurrenceCount)
	e.Stability = stabilityFor(e.OccurrencePercentage)

	// First classification wins: later occurrences never change the type.
	if e.DataType == TypeUnknown {
		e.DataType, e.TypeConfidence = Infer(value)
	}
}

func (e *Entry) refreshStability(totalDocuments int) {
	if totalDocuments <= 0 {
		return
	}
	e.TotalDocuments = totalDocuments
	e.OccurrencePercentage = float64(e.OccurrenceCount) / float64(totalDocuments) * 100
	e.Stability = stabilityFor(e.OccurrencePercentage)
}

// IsStable reports whether the field appears in at least 80% of documents.
func (e *Entry) IsStable() bool {
	return e.OccurrencePercentage >= 80
}

// IsCommon reports whether the field appears in at least 40% of documents.
func (e *Entry) IsCommon() bool {
	return e.OccurrencePercentage >= 40
}

// AddRelatedField links another field path to this one. Duplicates are
// ignored.
func (e *Entry) AddRelatedField(fieldPath string, correlationStrength float64) {
	for _, relation := range e.RelatedFields {
		if relation.FieldPath == fieldPath {
			return
		}
	}
	e.RelatedFields = append(e.RelatedFields, FieldRelation{
		FieldPath:           fieldPath,
		CorrelationStrength: correlationStrength,
		DiscoveredAt:        time.Now().UTC(),
	})
}

// AddTag attaches a tag if not already present.
func (e *Entry) AddTag(tag string) {
	for _, t := range e.Tags {
		if t == tag {
			return
		}
	}
	e.Tags = append(e.Tags, tag)
}

// RemoveTag detaches a tag.
func (e *Entry) RemoveTag(tag string) {
	for i, t := range e.Tags {
		if t == tag {
			e.Tags = append(e.Tags[:i], e.Tags[i+1:]...)
			return
		}
	}
}

func (e *Entry) String() string {
	return fmt.Sprintf("Field(path=%s, type=%s, occurrences=%d)", e.Path, e.DataType, e.OccurrenceCount)
}
