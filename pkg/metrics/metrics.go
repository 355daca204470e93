// Package metrics exposes Prometheus counters for the ingestion core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsIngested counts documents walked by the field registry.
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "field_registry_documents_ingested_total",
		Help: "Total number of documents ingested by the field registry",
	})

	// FieldsDiscovered counts newly discovered field paths.
	FieldsDiscovered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "field_registry_fields_discovered_total",
		Help: "Total number of distinct field paths discovered",
	})

	// VersionConflicts counts optimistic-concurrency failures on trip updates.
	VersionConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trip_store_version_conflicts_total",
		Help: "Total number of trip updates rejected due to a version conflict",
	})
)
