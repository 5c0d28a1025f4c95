package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"sync"

	"github/smartnotes/rag/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore mirrors the MongoStore semantics in memory: atomic upserting
// appends, last-N history, idempotent deletes.
type fakeStore struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation

	appendErr error
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{convs: map[string]*models.Conversation{}}
}

func (s *fakeStore) Create(_ context.Context, conv *models.Conversation) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.convs[conv.DocID]; ok {
		return ErrDuplicate
	}
	stored := *conv
	stored.ID = primitive.NewObjectID()
	s.convs[conv.DocID] = &stored
	return nil
}

func (s *fakeStore) AppendMessage(_ context.Context, docID string, msg models.Message) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[docID]
	if !ok {
		conv = &models.Conversation{ID: primitive.NewObjectID(), DocID: docID}
		s.convs[docID] = conv
	}
	conv.History = append(conv.History, msg)
	return nil
}

func (s *fakeStore) History(_ context.Context, docID string, limit int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[docID]
	if !ok {
		return nil, nil
	}
	history := conv.History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]models.Message, len(history))
	copy(out, history)
	return out, nil
}

func (s *fakeStore) ListAll(_ context.Context) ([]models.ChatSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var chats []models.ChatSummary
	for _, conv := range s.convs {
		chats = append(chats, models.ChatSummary{ID: conv.ID.Hex(), Name: conv.Name, DocID: conv.DocID})
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].DocID < chats[j].DocID })
	return chats, nil
}

func (s *fakeStore) FindByID(_ context.Context, id string) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range s.convs {
		if conv.DocID == id || conv.ID.Hex() == id {
			found := *conv
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, docID)
	return nil
}

// fakeIndex ranks stored points by true cosine similarity so retrieval
// order is meaningful in tests.
type fakeIndex struct {
	mu      sync.Mutex
	points  []models.VectorPoint
	ensured int
	batches [][]models.VectorPoint

	upsertErr error
	searchErr error
	deleteErr error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{}
}

func (f *fakeIndex) Ensure(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ensured++
	return nil
}

func (f *fakeIndex) UpsertBatch(_ context.Context, points []models.VectorPoint) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, batch := range splitBatches(points, DefaultUpsertBatchSize) {
		f.batches = append(f.batches, batch)
		f.points = append(f.points, batch...)
	}
	return nil
}

func (f *fakeIndex) Search(_ context.Context, vector []float32, docID string, limit int) ([]models.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var hits []models.SearchResult
	for _, p := range f.points {
		if p.DocID != docID {
			continue
		}
		hits = append(hits, models.SearchResult{ID: p.ID, Text: p.Text, Score: cosine(vector, p.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeIndex) DeleteByDocID(_ context.Context, docID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.points[:0]
	for _, p := range f.points {
		if p.DocID != docID {
			kept = append(kept, p)
		}
	}
	f.points = kept
	return nil
}

func (f *fakeIndex) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points), nil
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// fakeEmbedder derives a deterministic vector from the text so equal
// texts land on identical embeddings.
type fakeEmbedder struct {
	embedErr error
}

func hashVector(text string) []float32 {
	vec := make([]float32, 8)
	for i := range vec {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		vec[i] = float32(h.Sum32()%1000)/1000 + 0.001
	}
	return vec
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = hashVector(t)
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// fakeLLM records what it was asked and answers with a canned string, or
// a sentinel when failing is simulated.
type fakeLLM struct {
	mu           sync.Mutex
	answer       string
	failWith     string
	lastContext  string
	lastQuestion string
}

func (f *fakeLLM) Ask(_ context.Context, contextBlock, question string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastContext = contextBlock
	f.lastQuestion = question
	if f.failWith != "" {
		return f.failWith
	}
	if f.answer == "" {
		return "canned answer"
	}
	return f.answer
}

// fakeBlobs keeps uploads in a map keyed by their reference.
type fakeBlobs struct {
	mu    sync.Mutex
	files map[string][]byte

	saveErr   error
	deleteErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: map[string][]byte{}}
}

func (f *fakeBlobs) Save(_ context.Context, docID string, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := "mem://uploads/" + docID + ".pdf"
	f.files[ref] = data
	return ref, nil
}

func (f *fakeBlobs) Exists(_ context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[ref]
	return ok, nil
}

func (f *fakeBlobs) Delete(_ context.Context, ref string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, ref)
	return nil
}

// fakeExtractor returns a preset text for any input.
type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText([]byte) (string, error) {
	return f.text, f.err
}
