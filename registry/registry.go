package registry

import (
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TripAtlas/trip-atlas-backend/logger"
	"github.com/TripAtlas/trip-atlas-backend/pkg/metrics"
)

// Registry is the catalog of discovered fields, keyed by field path. A
// single mutex serializes ingestion: RegisterDocumentFields rescans the
// whole catalog to refresh percentages, which must not interleave with
// another ingestion into the same instance.
type Registry struct {
	mu                      sync.RWMutex
	fields                  map[string]*Entry
	namespaces              map[string]struct{}
	totalDocumentsProcessed int
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		fields:     make(map[string]*Entry),
		namespaces: make(map[string]struct{}),
	}
}

// RegisterDocumentFields walks every field of a document and records its
// occurrence. Array positions collapse to "[]" so items[0].code and
// items[3].code land on the same path. Container values register both the
// container itself and (for mappings) their children; for a non-empty array
// only the first element's shape is sampled; later elements are invisible
// to the registry.
//
// After the walk, occurrence percentage and stability are recomputed for
// every entry in the catalog, because the corpus size changed for all of
// them. The rescan is O(#fields) per document.
//
// Ingestion never fails: malformed or heterogeneous input degrades to the
// unknown type and empty containers simply register no children.
func (r *Registry) RegisterDocumentFields(documentData map[string]any, documentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totalDocumentsProcessed++
	r.walk(documentData, "", "", documentID)
	for _, entry := range r.fields {
		entry.refreshStability(r.totalDocumentsProcessed)
	}

	metrics.DocumentsIngested.Inc()
	logger.GetLogger().Debugw("Registered document fields",
		"documentId", documentID,
		"totalDocuments", r.totalDocumentsProcessed,
		"totalFields", len(r.fields))
}

func (r *Registry) walk(data any, prefix, namespace, documentID string) {
	switch d := data.(type) {
	case map[string]any:
		for key, value := range d {
			path := key
			if prefix != "" {
				path = prefix + "." + key
			}

			// The namespace is captured from the first-level key.
			ns := namespace
			if ns == "" && prefix == "" {
				ns = key
			}

			switch value.(type) {
			case map[string]any, []any:
				// The container itself is a field too.
				r.registerField(path, value, documentID, ns)
				r.walk(value, path, ns, documentID)
			default:
				r.registerField(path, value, documentID, ns)
			}
		}
	case []any:
		if len(d) == 0 {
			return
		}
		// Only the first element's shape extends the path with [].
		first, ok := d[0].(map[string]any)
		if !ok {
			return
		}
		for key, value := range first {
			path := "[]." + key
			if prefix != "" {
				path = prefix + "[]." + key
			}
			r.registerField(path, value, documentID, namespace)
		}
	}
}

func (r *Registry) registerField(path string, value any, documentID, namespace string) {
	entry, ok := r.fields[path]
	if !ok {
		entry = newEntry(path, namespace)
		r.fields[path] = entry
		metrics.FieldsDiscovered.Inc()
	}

	entry.AddOccurrence(documentID, value, r.totalDocumentsProcessed)

	if namespace != "" {
		r.namespaces[namespace] = struct{}{}
	}
}

// Field returns the entry at path, or nil if the path was never observed.
func (r *Registry) Field(path string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fields[path]
}

// Contains reports whether path was ever observed.
func (r *Registry) Contains(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fields[path]
	return ok
}

// Len returns the number of discovered fields.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fields)
}

// TotalDocumentsProcessed returns the corpus size.
func (r *Registry) TotalDocumentsProcessed() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalDocumentsProcessed
}

// Namespaces returns the sorted set of observed namespaces.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNamespaces()
}

func (r *Registry) sortedNamespaces() []string {
	namespaces := make([]string, 0, len(r.namespaces))
	for ns := range r.namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	return namespaces
}

// filter returns entries matching keep, sorted by path.
func (r *Registry) filter(keep func(*Entry) bool) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var entries []*Entry
	for _, entry := range r.fields {
		if keep(entry) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// FieldsByNamespace returns all fields discovered under a namespace.
func (r *Registry) FieldsByNamespace(namespace string) []*Entry {
	return r.filter(func(e *Entry) bool { return e.SourceNamespace == namespace })
}

// FieldsByType returns all fields of a given data type.
func (r *Registry) FieldsByType(dataType DataType) []*Entry {
	return r.filter(func(e *Entry) bool { return e.DataType == dataType })
}

// StableFields returns fields occurring in at least 80% of documents.
func (r *Registry) StableFields() []*Entry {
	return r.filter((*Entry).IsStable)
}

// CommonFields returns fields occurring in at least 40% of documents.
func (r *Registry) CommonFields() []*Entry {
	return r.filter((*Entry).IsCommon)
}

// SearchableFields returns all fields flagged searchable.
func (r *Registry) SearchableFields() []*Entry {
	return r.filter(func(e *Entry) bool { return e.IsSearchable })
}

// IndexedFields returns all fields flagged indexed.
func (r *Registry) IndexedFields() []*Entry {
	return r.filter(func(e *Entry) bool { return e.IsIndexed })
}

// SuggestIndexes proposes fields worth a database index: stable, searchable,
// not already indexed, and not a container type.
func (r *Registry) SuggestIndexes() []string {
	candidates := r.filter(func(e *Entry) bool {
		return e.IsStable() &&
			e.IsSearchable &&
			!e.IsIndexed &&
			e.DataType != TypeObject &&
			e.DataType != TypeArray
	})
	paths := make([]string, 0, len(candidates))
	for _, entry := range candidates {
		paths = append(paths, entry.Path)
	}
	return paths
}

// SchemaSummary is a coarse view of the discovered schema.
type SchemaSummary struct {
	TotalFields             int               `json:"total_fields" yaml:"total_fields"`
	TotalDocumentsProcessed int               `json:"total_documents_processed" yaml:"total_documents_processed"`
	Namespaces              []string          `json:"namespaces" yaml:"namespaces"`
	FieldsByStability       map[Stability]int `json:"fields_by_stability" yaml:"fields_by_stability"`
	FieldsByType            map[DataType]int  `json:"fields_by_type" yaml:"fields_by_type"`
	SuggestedIndexes        []string          `json:"suggested_indexes" yaml:"suggested_indexes"`
}

// Summary builds a SchemaSummary snapshot.
func (r *Registry) Summary() SchemaSummary {
	summary := SchemaSummary{
		TotalFields:             r.Len(),
		TotalDocumentsProcessed: r.TotalDocumentsProcessed(),
		Namespaces:              r.Namespaces(),
		FieldsByStability:       make(map[Stability]int),
		FieldsByType:            make(map[DataType]int),
		SuggestedIndexes:        r.SuggestIndexes(),
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, entry := range r.fields {
		summary.FieldsByStability[entry.Stability]++
		summary.FieldsByType[entry.DataType]++
	}
	return summary
}

// SchemaExport is the complete serializable state of the registry. Its
// contents are independent of map iteration order, so re-serialization is
// stable field-for-field.
type SchemaExport struct {
	Metadata SchemaMetadata   `json:"metadata" yaml:"metadata"`
	Fields   map[string]Entry `json:"fields" yaml:"fields"`
}

// SchemaMetadata describes an exported schema snapshot.
type SchemaMetadata struct {
	TotalFields             int       `json:"total_fields" yaml:"total_fields"`
	TotalDocumentsProcessed int       `json:"total_documents_processed" yaml:"total_documents_processed"`
	Namespaces              []string  `json:"namespaces" yaml:"namespaces"`
	ExportedAt              time.Time `json:"exported_at" yaml:"exported_at"`
}

// ExportSchema snapshots the registry. Entries are copied, so the export is
// unaffected by later ingestion.
func (r *Registry) ExportSchema() SchemaExport {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fields := make(map[string]Entry, len(r.fields))
	for path, entry := range r.fields {
		fields[path] = *entry
	}

	return SchemaExport{
		Metadata: SchemaMetadata{
			TotalFields:             len(r.fields),
			TotalDocumentsProcessed: r.totalDocumentsProcessed,
			Namespaces:              r.sortedNamespaces(),
			ExportedAt:              time.Now().UTC(),
		},
		Fields: fields,
	}
}

// ExportSchemaYAML renders the schema snapshot as YAML for human review.
func (r *Registry) ExportSchemaYAML() ([]byte, error) {
	return yaml.Marshal(r.ExportSchema())
}

// FromExport reconstructs a registry from an exported snapshot.
func FromExport(export SchemaExport) *Registry {
	r := New()
	r.totalDocumentsProcessed = export.Metadata.TotalDocumentsProcessed
	for _, namespace := range export.Metadata.Namespaces {
		r.namespaces[namespace] = struct{}{}
	}
	for path, entry := range export.Fields {
		e := entry
		r.fields[path] = &e
	}
	return r
}
