package services

import (
	"context"
	"strings"
	"unicode"

	"github/smartnotes/rag/models"
)

const (
	// HistoryLimit caps how many recent messages feed the prompt. The
	// full history stays retrievable; only context assembly is bounded.
	HistoryLimit = 10

	// SearchLimit is how many chunks similarity search retrieves.
	SearchLimit = 5
)

// QueryService runs the question pipeline: record the question, gather
// recent history and relevant chunks, ask the LLM, record the answer.
type QueryService struct {
	store    ConversationStore
	embedder EmbeddingService
	index    VectorIndex
	llm      LLMClient
}

// NewQueryService wires the query pipeline.
func NewQueryService(store ConversationStore, embedder EmbeddingService, index VectorIndex, llm LLMClient) *QueryService {
	return &QueryService{
		store:    store,
		embedder: embedder,
		index:    index,
		llm:      llm,
	}
}

// Ask answers a question about the given document. The user message is
// appended before anything else so history reflects the question even when
// a later stage fails. Embedding and search failures propagate; an LLM
// failure comes back as a sentinel answer inside a successful response.
func (s *QueryService) Ask(ctx context.Context, docID, question string) (*models.QueryResponse, error) {
	userMsg := models.Message{Role: "user", Content: question}
	if err := s.store.AppendMessage(ctx, docID, userMsg); err != nil {
		return nil, err
	}

	history, err := s.store.History(ctx, docID, HistoryLimit)
	if err != nil {
		return nil, err
	}
	structuredHistory := formatHistory(history)

	questionVector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, questionVector, docID, SearchLimit)
	if err != nil {
		return nil, err
	}

	chunkTexts := make([]string, 0, len(hits))
	for _, hit := range hits {
		chunkTexts = append(chunkTexts, hit.Text)
	}
	contextUsed := strings.Join(chunkTexts, "\n")

	fullContext := structuredHistory + "\n\n" + contextUsed
	answer := s.llm.Ask(ctx, fullContext, question)

	assistantMsg := models.Message{Role: "assistant", Content: answer}
	if err := s.store.AppendMessage(ctx, docID, assistantMsg); err != nil {
		return nil, err
	}

	return &models.QueryResponse{
		Answer:       answer,
		ContextUsed:  contextUsed,
		HistoryCount: len(history),
	}, nil
}

// formatHistory renders messages as role-prefixed lines in chronological
// order.
func formatHistory(history []models.Message) string {
	lines := make([]string, 0, len(history))
	for _, msg := range history {
		lines = append(lines, titleCase(msg.Role)+": "+msg.Content)
	}
	return strings.Join(lines, "\n")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
