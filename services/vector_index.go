package services

import (
	"context"
	"fmt"
	"sync"

	"github/smartnotes/rag/models"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
)

// DefaultUpsertBatchSize bounds how many points go into one upsert call.
const DefaultUpsertBatchSize = 100

// VectorIndex wraps the vector store: collection lifecycle, batched
// upserts, doc_id-scoped similarity search and deletion.
type VectorIndex interface {
	Ensure(ctx context.Context) error
	UpsertBatch(ctx context.Context, points []models.VectorPoint) error
	Search(ctx context.Context, vector []float32, docID string, limit int) ([]models.SearchResult, error)
	DeleteByDocID(ctx context.Context, docID string) error
	Count(ctx context.Context) (int, error)
}

// ChromaIndex is the ChromaDB-backed VectorIndex. All documents share one
// collection; points are scoped by a doc_id metadata attribute.
type ChromaIndex struct {
	client         chromago.Client
	collectionName string
	batchSize      int

	mu         sync.Mutex
	collection chromago.Collection
}

// NewChromaIndex creates an index over the named collection. The
// collection itself is created lazily by Ensure.
func NewChromaIndex(client chromago.Client, collectionName string) *ChromaIndex {
	return &ChromaIndex{
		client:         client,
		collectionName: collectionName,
		batchSize:      DefaultUpsertBatchSize,
	}
}

// Ensure idempotently gets or creates the collection with cosine distance.
// Safe to call on every ingest; subsequent calls reuse the cached handle.
func (v *ChromaIndex) Ensure(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.collection != nil {
		return nil
	}

	collection, err := v.client.GetOrCreateCollection(
		ctx,
		v.collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to get or create collection %q: %w", v.collectionName, err)
	}
	v.collection = collection
	return nil
}

func (v *ChromaIndex) ready(ctx context.Context) (chromago.Collection, error) {
	if err := v.Ensure(ctx); err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collection, nil
}

// UpsertBatch stores points in contiguous batches, each sent only after
// the previous one returned. A mid-sequence failure leaves earlier batches
// stored; callers treat partial ingestion as recoverable, not corruption.
func (v *ChromaIndex) UpsertBatch(ctx context.Context, points []models.VectorPoint) error {
	collection, err := v.ready(ctx)
	if err != nil {
		return err
	}

	batches := splitBatches(points, v.batchSize)
	for n, batch := range batches {
		ids := make([]chromago.DocumentID, 0, len(batch))
		texts := make([]string, 0, len(batch))
		embs := make([]embeddings.Embedding, 0, len(batch))
		metas := make([]chromago.DocumentMetadata, 0, len(batch))
		for _, p := range batch {
			ids = append(ids, chromago.DocumentID(p.ID))
			texts = append(texts, p.Text)
			embs = append(embs, embeddings.NewEmbeddingFromFloat32(p.Vector))
			metas = append(metas, chromago.NewDocumentMetadata(
				chromago.NewStringAttribute("doc_id", p.DocID),
			))
		}

		err := collection.Add(ctx,
			chromago.WithIDs(ids...),
			chromago.WithTexts(texts...),
			chromago.WithEmbeddings(embs...),
			chromago.WithMetadatas(metas...),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d/%d: %w", n+1, len(batches), err)
		}
	}
	return nil
}

// Search returns up to limit points belonging to docID, ranked by cosine
// similarity to the query vector, best first.
func (v *ChromaIndex) Search(ctx context.Context, vector []float32, docID string, limit int) ([]models.SearchResult, error) {
	collection, err := v.ready(ctx)
	if err != nil {
		return nil, err
	}

	results, err := collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
		chromago.WithWhereQuery(chromago.EqString("doc_id", docID)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	idGroups := results.GetIDGroups()
	docGroups := results.GetDocumentsGroups()
	distGroups := results.GetDistancesGroups()

	var hits []models.SearchResult
	if len(docGroups) > 0 {
		for i, doc := range docGroups[0] {
			hit := models.SearchResult{Text: doc.ContentString()}
			if len(idGroups) > 0 && i < len(idGroups[0]) {
				hit.ID = string(idGroups[0][i])
			}
			if len(distGroups) > 0 && i < len(distGroups[0]) {
				// Chroma reports cosine distance; similarity is its complement.
				hit.Score = 1 - float32(distGroups[0][i])
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// DeleteByDocID removes every point belonging to docID. Deleting an
// unknown doc_id is a no-op.
func (v *ChromaIndex) DeleteByDocID(ctx context.Context, docID string) error {
	collection, err := v.ready(ctx)
	if err != nil {
		return err
	}

	where := chromago.EqString("doc_id", docID)
	if err := collection.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete points for doc %s: %w", docID, err)
	}
	return nil
}

// Count reports the total number of stored chunks across all documents.
func (v *ChromaIndex) Count(ctx context.Context) (int, error) {
	collection, err := v.ready(ctx)
	if err != nil {
		return 0, err
	}
	count, err := collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

// splitBatches partitions items into contiguous slices of at most size.
func splitBatches[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultUpsertBatchSize
	}
	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
