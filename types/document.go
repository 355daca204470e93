package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DocumentSourceType says where an ingested document came from.
type DocumentSourceType string

const (
	SourceEmailAttachment DocumentSourceType = "email_attachment"
	SourceEmailBody       DocumentSourceType = "email_body"
	SourceDirectUpload    DocumentSourceType = "direct_upload"
	SourceAPIImport       DocumentSourceType = "api_import"
	SourceTMCReport       DocumentSourceType = "tmc_report"
	SourceReceiptScan     DocumentSourceType = "receipt_scan"
	SourcePDFUpload       DocumentSourceType = "pdf_upload"
)

// ProcessingStatus tracks a document through the extraction pipeline.
type ProcessingStatus string

const (
	ProcessingPending   ProcessingStatus = "pending"
	ProcessingActive    ProcessingStatus = "processing"
	ProcessingCompleted ProcessingStatus = "completed"
	ProcessingFailed    ProcessingStatus = "failed"
	ProcessingSkipped   ProcessingStatus = "skipped"
)

func (ps ProcessingStatus) IsValid() bool {
	switch ps {
	case ProcessingPending, ProcessingActive, ProcessingCompleted, ProcessingFailed, ProcessingSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the pipeline is done with the document.
func (ps ProcessingStatus) IsTerminal() bool {
	return ps == ProcessingCompleted || ps == ProcessingFailed || ps == ProcessingSkipped
}

// DocumentType classifies a document by its content.
type DocumentType string

const (
	DocItinerary         DocumentType = "itinerary"
	DocFlightUpdate      DocumentType = "flight_update"
	DocHotelConfirmation DocumentType = "hotel_confirmation"
	DocReceipt           DocumentType = "receipt"
	DocInvoice           DocumentType = "invoice"
	DocCancellation      DocumentType = "cancellation"
	DocGenericTravel     DocumentType = "generic_travel"
	DocUnknown           DocumentType = "unknown"
)

// ExtractionResult captures one pass of structured-data extraction over a
// document.
type ExtractionResult struct {
	ExtractedAt      time.Time      `json:"extracted_at"`
	ConfidenceScore  float64        `json:"confidence_score"`
	ExtractedData    map[string]any `json:"extracted_data"`
	ProcessingTimeMS int            `json:"processing_time_ms,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// DocumentMetadata tracks an uploaded document: where its bytes live in
// object storage, how processing is going, and which trip it fed. The raw
// bytes themselves are only ever reached through the object storage facade.
type DocumentMetadata struct {
	DocumentID       string             `json:"document_id"`
	Filename         string             `json:"filename"`
	MimeType         string             `json:"mime_type,omitempty"`
	SizeBytes        int64              `json:"size_bytes"`
	SourceType       DocumentSourceType `json:"source_type"`
	UploadedAt       time.Time          `json:"uploaded_at"`
	LastProcessed    time.Time          `json:"last_processed,omitzero"`
	ProcessingStatus ProcessingStatus   `json:"processing_status"`
	ProcessingErrors []string           `json:"processing_errors,omitempty"`
	DocumentType     DocumentType       `json:"document_type"`
	ConfidenceScore  float64            `json:"confidence_score"`

	// Object storage reference.
	StorageBucket string `json:"storage_bucket,omitempty"`
	StorageKey    string `json:"storage_key,omitempty"`

	ExtractionResults []ExtractionResult `json:"extraction_results,omitempty"`
	TripID            string             `json:"trip_id,omitempty"`
}

// NewDocumentMetadata registers a freshly uploaded document as pending.
func NewDocumentMetadata(filename string, sourceType DocumentSourceType) *DocumentMetadata {
	return &DocumentMetadata{
		DocumentID:       "doc-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Filename:         filename,
		SourceType:       sourceType,
		UploadedAt:       time.Now().UTC(),
		ProcessingStatus: ProcessingPending,
		DocumentType:     DocUnknown,
	}
}

// MarkProcessing flags the document as being worked on.
func (d *DocumentMetadata) MarkProcessing() {
	d.ProcessingStatus = ProcessingActive
	d.LastProcessed = time.Now().UTC()
}

// MarkCompleted records a successful extraction pass.
func (d *DocumentMetadata) MarkCompleted(result ExtractionResult) {
	d.ProcessingStatus = ProcessingCompleted
	d.ConfidenceScore = result.ConfidenceScore
	d.LastProcessed = time.Now().UTC()
	d.ExtractionResults = append(d.ExtractionResults, result)
}

// MarkFailed records a failed extraction pass.
func (d *DocumentMetadata) MarkFailed(reason string) {
	d.ProcessingStatus = ProcessingFailed
	d.LastProcessed = time.Now().UTC()
	d.ProcessingErrors = append(d.ProcessingErrors, reason)
}

// AttachToTrip links the document to the trip its data was merged into.
func (d *DocumentMetadata) AttachToTrip(tripID string) {
	d.TripID = tripID
}
