package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
	"github.com/TripAtlas/trip-atlas-backend/store"
	"github.com/TripAtlas/trip-atlas-backend/types"
)

// Ensure pgDocumentStore implements store.DocumentStore.
var _ store.DocumentStore = (*pgDocumentStore)(nil)

type pgDocumentStore struct {
	db PGXQuerier
}

// NewDocumentStore creates a PostgreSQL document metadata store.
func NewDocumentStore(db PGXQuerier) store.DocumentStore {
	return &pgDocumentStore{db: db}
}

func documentJSON(doc *types.DocumentMetadata) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ValidationError, "document is not serializable")
	}
	return raw, nil
}

func decodeDocument(raw []byte) (*types.DocumentMetadata, error) {
	var doc types.DocumentMetadata
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.DatabaseError, "malformed document metadata")
	}
	return &doc, nil
}

// CreateDocument implements store.DocumentStore.
func (s *pgDocumentStore) CreateDocument(ctx context.Context, doc *types.DocumentMetadata) error {
	if doc.DocumentID == "" {
		return apperrors.ValidationFailed("missing document_id", "document_id is required")
	}
	raw, err := documentJSON(doc)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
        INSERT INTO documents (document_id, trip_id, processing_status, uploaded_at, doc)
        VALUES ($1, $2, $3, $4, $5)`,
		doc.DocumentID,
		doc.TripID,
		string(doc.ProcessingStatus),
		doc.UploadedAt,
		raw,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return apperrors.AlreadyExists("document", doc.DocumentID)
		}
		return apperrors.NewDatabaseError(err)
	}
	return nil
}

// GetDocument implements store.DocumentStore.
func (s *pgDocumentStore) GetDocument(ctx context.Context, documentID string) (*types.DocumentMetadata, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT doc FROM documents WHERE document_id = $1`, documentID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("document", documentID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	return decodeDocument(raw)
}

// UpdateDocument implements store.DocumentStore.
func (s *pgDocumentStore) UpdateDocument(ctx context.Context, doc *types.DocumentMetadata) error {
	raw, err := documentJSON(doc)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `
        UPDATE documents
        SET trip_id = $1, processing_status = $2, doc = $3
        WHERE document_id = $4`,
		doc.TripID,
		string(doc.ProcessingStatus),
		raw,
		doc.DocumentID,
	)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("document", doc.DocumentID)
	}
	return nil
}

// DeleteDocument implements store.DocumentStore.
func (s *pgDocumentStore) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE document_id = $1`, documentID)
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("document", documentID)
	}
	return nil
}

// ListDocumentsByTrip implements store.DocumentStore.
func (s *pgDocumentStore) ListDocumentsByTrip(ctx context.Context, tripID string) ([]*types.DocumentMetadata, error) {
	return s.queryDocuments(ctx, `
        SELECT doc FROM documents
        WHERE trip_id = $1
        ORDER BY uploaded_at ASC`, tripID)
}

// ListDocumentsByStatus implements store.DocumentStore.
func (s *pgDocumentStore) ListDocumentsByStatus(ctx context.Context, status types.ProcessingStatus) ([]*types.DocumentMetadata, error) {
	return s.queryDocuments(ctx, `
        SELECT doc FROM documents
        WHERE processing_status = $1
        ORDER BY uploaded_at ASC`, string(status))
}

func (s *pgDocumentStore) queryDocuments(ctx context.Context, sql string, args ...any) ([]*types.DocumentMetadata, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	defer rows.Close()

	var docs []*types.DocumentMetadata
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return docs, nil
}
