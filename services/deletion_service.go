package services

import (
	"context"
	"log"
)

// DeletionService tears a document down across the three backing stores.
// Vector and file cleanup are best-effort; only the conversation record's
// removal decides success.
type DeletionService struct {
	store  ConversationStore
	index  VectorIndex
	blobs  BlobStorage
	logger *log.Logger
}

// NewDeletionService wires the deletion pipeline. A nil logger falls back
// to the process default.
func NewDeletionService(store ConversationStore, index VectorIndex, blobs BlobStorage, logger *log.Logger) *DeletionService {
	if logger == nil {
		logger = log.Default()
	}
	return &DeletionService{
		store:  store,
		index:  index,
		blobs:  blobs,
		logger: logger,
	}
}

// Delete removes a chat by sidebar id or doc_id. Returns ErrNotFound when
// no record exists. A failed vector or file cleanup is logged and leaves
// the outcome unchanged; the record deletion must succeed.
func (s *DeletionService) Delete(ctx context.Context, id string) error {
	conv, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.index.DeleteByDocID(ctx, conv.DocID); err != nil {
		s.logger.Printf("DELETE WARN: vector delete failed for doc %s: %v", conv.DocID, err)
	}

	if conv.FilePath != "" {
		exists, err := s.blobs.Exists(ctx, conv.FilePath)
		if err != nil {
			s.logger.Printf("DELETE WARN: could not stat file %s: %v", conv.FilePath, err)
		} else if exists {
			if err := s.blobs.Delete(ctx, conv.FilePath); err != nil {
				s.logger.Printf("DELETE WARN: file delete failed for %s: %v", conv.FilePath, err)
			}
		}
	}

	return s.store.Delete(ctx, conv.DocID)
}
