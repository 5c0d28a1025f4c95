package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github/smartnotes/rag/models"

	"github.com/google/uuid"
)

// IngestService runs the upload pipeline: persist the PDF, extract its
// text, chunk, embed, index, and record the conversation. Completed stages
// are never rolled back on failure; re-uploading under a fresh doc_id is
// the recovery path.
type IngestService struct {
	blobs          BlobStorage
	extractor      TextExtractor
	embedder       EmbeddingService
	index          VectorIndex
	store          ConversationStore
	collectionName string
	chunkSize      int
	logger         *log.Logger
}

// NewIngestService wires the ingest pipeline. A nil logger falls back to
// the process default.
func NewIngestService(blobs BlobStorage, extractor TextExtractor, embedder EmbeddingService, index VectorIndex, store ConversationStore, collectionName string, logger *log.Logger) *IngestService {
	if logger == nil {
		logger = log.Default()
	}
	return &IngestService{
		blobs:          blobs,
		extractor:      extractor,
		embedder:       embedder,
		index:          index,
		store:          store,
		collectionName: collectionName,
		chunkSize:      DefaultChunkSize,
		logger:         logger,
	}
}

// Ingest processes one uploaded PDF and returns its fresh doc_id. A PDF
// with no extractable text still succeeds, producing a conversation record
// with zero vector points.
func (s *IngestService) Ingest(ctx context.Context, filename string, data []byte) (string, error) {
	docID := uuid.New().String()

	ref, err := s.blobs.Save(ctx, docID, data)
	if err != nil {
		return "", err
	}

	text, err := s.extractor.ExtractText(data)
	if err != nil {
		return "", fmt.Errorf("failed to extract text: %w", err)
	}

	chunks := SplitText(text, s.chunkSize)
	s.logger.Printf("INGEST: doc %s split into %d chunks", docID, len(chunks))

	if len(chunks) > 0 {
		if err := s.embedAndStore(ctx, docID, chunks); err != nil {
			return "", err
		}
	}

	conv := &models.Conversation{
		DocID:      docID,
		Name:       filename,
		FilePath:   ref,
		Collection: s.collectionName,
		History:    []models.Message{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.Create(ctx, conv); err != nil {
		return "", err
	}

	s.logger.Printf("INGEST: doc %s recorded as %q", docID, filename)
	return docID, nil
}

func (s *IngestService) embedAndStore(ctx context.Context, docID string, chunks []string) error {
	vectors, err := s.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]models.VectorPoint, len(chunks))
	for i := range chunks {
		points[i] = models.VectorPoint{
			ID:     uuid.New().String(),
			Vector: vectors[i],
			DocID:  docID,
			Text:   chunks[i],
		}
	}

	if err := s.index.Ensure(ctx); err != nil {
		return err
	}
	return s.index.UpsertBatch(ctx, points)
}

// IngestStream runs the same pipeline but reports each stage transition on
// the returned channel. A stage failure produces a terminal error event
// rather than an error; the channel always ends with a Done event and is
// then closed, so callers can range over it safely.
func (s *IngestService) IngestStream(ctx context.Context, filename string, data []byte) <-chan models.UploadEvent {
	events := make(chan models.UploadEvent)

	go func() {
		defer close(events)

		fail := func(stage string, err error) {
			s.logger.Printf("INGEST ERROR: %s: %v", stage, err)
			events <- models.UploadEvent{Status: fmt.Sprintf("Error: %v", err), Done: true}
		}

		docID := uuid.New().String()

		events <- models.UploadEvent{Status: "File uploaded successfully. Starting processing..."}
		ref, err := s.blobs.Save(ctx, docID, data)
		if err != nil {
			fail("store upload", err)
			return
		}

		events <- models.UploadEvent{Status: "Extracting text from PDF..."}
		text, err := s.extractor.ExtractText(data)
		if err != nil {
			fail("extract text", err)
			return
		}

		events <- models.UploadEvent{Status: "Generating embeddings..."}
		chunks := SplitText(text, s.chunkSize)

		events <- models.UploadEvent{Status: "Storing vectors into database..."}
		if len(chunks) > 0 {
			if err := s.embedAndStore(ctx, docID, chunks); err != nil {
				fail("embed and store", err)
				return
			}
		}

		conv := &models.Conversation{
			DocID:      docID,
			Name:       filename,
			FilePath:   ref,
			Collection: s.collectionName,
			History:    []models.Message{},
			CreatedAt:  time.Now().UTC(),
		}
		if err := s.store.Create(ctx, conv); err != nil {
			fail("create record", err)
			return
		}

		events <- models.UploadEvent{Status: "Done! You're good to go.", DocID: docID, Done: true}
	}()

	return events
}
