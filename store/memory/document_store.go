package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/TripAtlas/trip-atlas-backend/errors"
	"github.com/TripAtlas/trip-atlas-backend/store"
	"github.com/TripAtlas/trip-atlas-backend/types"
)

// Ensure DocumentStore implements store.DocumentStore.
var _ store.DocumentStore = (*DocumentStore)(nil)

// DocumentStore keeps document metadata in a map keyed by document ID.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]*types.DocumentMetadata
}

// NewDocumentStore creates an empty in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*types.DocumentMetadata)}
}

func cloneDocument(doc *types.DocumentMetadata) *types.DocumentMetadata {
	var clone types.DocumentMetadata
	data, err := json.Marshal(doc)
	if err != nil {
		panic(fmt.Sprintf("document %s is not serializable: %v", doc.DocumentID, err))
	}
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("document %s clone failed: %v", doc.DocumentID, err))
	}
	return &clone
}

// CreateDocument implements store.DocumentStore.
func (s *DocumentStore) CreateDocument(ctx context.Context, doc *types.DocumentMetadata) error {
	if doc.DocumentID == "" {
		return apperrors.ValidationFailed("missing document_id", "document_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.DocumentID]; exists {
		return apperrors.AlreadyExists("document", doc.DocumentID)
	}
	s.docs[doc.DocumentID] = cloneDocument(doc)
	return nil
}

// GetDocument implements store.DocumentStore.
func (s *DocumentStore) GetDocument(ctx context.Context, documentID string) (*types.DocumentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[documentID]
	if !ok {
		return nil, apperrors.NotFound("document", documentID)
	}
	return cloneDocument(doc), nil
}

// UpdateDocument implements store.DocumentStore.
func (s *DocumentStore) UpdateDocument(ctx context.Context, doc *types.DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.DocumentID]; !ok {
		return apperrors.NotFound("document", doc.DocumentID)
	}
	s.docs[doc.DocumentID] = cloneDocument(doc)
	return nil
}

// DeleteDocument implements store.DocumentStore.
func (s *DocumentStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[documentID]; !ok {
		return apperrors.NotFound("document", documentID)
	}
	delete(s.docs, documentID)
	return nil
}

// ListDocumentsByTrip implements store.DocumentStore.
func (s *DocumentStore) ListDocumentsByTrip(ctx context.Context, tripID string) ([]*types.DocumentMetadata, error) {
	docs := s.collect(func(d *types.DocumentMetadata) bool { return d.TripID == tripID })
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

// ListDocumentsByStatus implements store.DocumentStore.
func (s *DocumentStore) ListDocumentsByStatus(ctx context.Context, status types.ProcessingStatus) ([]*types.DocumentMetadata, error) {
	docs := s.collect(func(d *types.DocumentMetadata) bool { return d.ProcessingStatus == status })
	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt.Before(docs[j].UploadedAt) })
	return docs, nil
}

func (s *DocumentStore) collect(keep func(*types.DocumentMetadata) bool) []*types.DocumentMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var docs []*types.DocumentMetadata
	for _, doc := range s.docs {
		if keep(doc) {
			docs = append(docs, cloneDocument(doc))
		}
	}
	return docs
}
