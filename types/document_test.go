package types

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentMetadata(t *testing.T) {
	doc := NewDocumentMetadata("itinerary.pdf", SourceEmailAttachment)

	assert.True(t, strings.HasPrefix(doc.DocumentID, "doc-"))
	assert.Equal(t, "itinerary.pdf", doc.Filename)
	assert.Equal(t, SourceEmailAttachment, doc.SourceType)
	assert.Equal(t, ProcessingPending, doc.ProcessingStatus)
	assert.Equal(t, DocUnknown, doc.DocumentType)
	assert.True(t, doc.LastProcessed.IsZero())
}

func TestDocumentMetadata_Lifecycle(t *testing.T) {
	doc := NewDocumentMetadata("itinerary.pdf", SourceDirectUpload)

	doc.MarkProcessing()
	assert.Equal(t, ProcessingActive, doc.ProcessingStatus)
	assert.False(t, doc.ProcessingStatus.IsTerminal())
	assert.False(t, doc.LastProcessed.IsZero())

	result := ExtractionResult{
		ExtractedAt:     time.Now().UTC(),
		ConfidenceScore: 0.93,
		ExtractedData:   map[string]any{"air": map[string]any{"confirmation_code": "ABC123"}},
	}
	doc.MarkCompleted(result)
	assert.Equal(t, ProcessingCompleted, doc.ProcessingStatus)
	assert.True(t, doc.ProcessingStatus.IsTerminal())
	assert.Equal(t, 0.93, doc.ConfidenceScore)
	require.Len(t, doc.ExtractionResults, 1)

	doc.AttachToTrip("trip-abc")
	assert.Equal(t, "trip-abc", doc.TripID)
}

func TestDocumentMetadata_MarkFailed(t *testing.T) {
	doc := NewDocumentMetadata("garbled.pdf", SourceReceiptScan)
	doc.MarkFailed("unreadable page")
	doc.MarkFailed("still unreadable")

	assert.Equal(t, ProcessingFailed, doc.ProcessingStatus)
	assert.Equal(t, []string{"unreadable page", "still unreadable"}, doc.ProcessingErrors)
}

func TestProcessingStatus_IsValid(t *testing.T) {
	for _, status := range []ProcessingStatus{
		ProcessingPending, ProcessingActive, ProcessingCompleted, ProcessingFailed, ProcessingSkipped,
	} {
		assert.True(t, status.IsValid(), string(status))
	}
	assert.False(t, ProcessingStatus("queued").IsValid())
}
