package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github/smartnotes/rag/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDocument(t *testing.T, index *fakeIndex, docID string, chunks ...string) {
	t.Helper()
	points := make([]models.VectorPoint, len(chunks))
	for i, chunk := range chunks {
		points[i] = models.VectorPoint{
			ID:     chunk,
			Vector: hashVector(chunk),
			DocID:  docID,
			Text:   chunk,
		}
	}
	require.NoError(t, index.UpsertBatch(context.Background(), points))
}

func TestAsk_AppendsBothMessagesInOrder(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	llm := &fakeLLM{answer: "the answer"}
	svc := NewQueryService(store, &fakeEmbedder{}, index, llm)
	seedDocument(t, index, "doc-1", "chunk one", "chunk two")

	resp, err := svc.Ask(context.Background(), "doc-1", "what is this?")
	require.NoError(t, err)
	assert.Equal(t, "the answer", resp.Answer)

	history, err := store.History(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.Message{Role: "user", Content: "what is this?"}, history[0])
	assert.Equal(t, models.Message{Role: "assistant", Content: "the answer"}, history[1])
}

func TestAsk_HistoryCountReflectsPreAnswerState(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	svc := NewQueryService(store, &fakeEmbedder{}, index, &fakeLLM{})
	seedDocument(t, index, "doc-1", "chunk")

	// first question: only the just-appended user message counts
	resp, err := svc.Ask(context.Background(), "doc-1", "first?")
	require.NoError(t, err)
	assert.Equal(t, 1, resp.HistoryCount)

	// second question: user, assistant, user
	resp, err = svc.Ask(context.Background(), "doc-1", "second?")
	require.NoError(t, err)
	assert.Equal(t, 3, resp.HistoryCount)
}

func TestAsk_HistoryCapAtTen(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	llm := &fakeLLM{}
	svc := NewQueryService(store, &fakeEmbedder{}, index, llm)
	seedDocument(t, index, "doc-1", "chunk")

	for i := 0; i < 12; i++ {
		_, err := svc.Ask(context.Background(), "doc-1", "again?")
		require.NoError(t, err)
	}

	resp, err := svc.Ask(context.Background(), "doc-1", "final?")
	require.NoError(t, err)
	assert.Equal(t, HistoryLimit, resp.HistoryCount)

	// the prompt block carries at most ten role-prefixed lines
	historyBlock := strings.SplitN(llm.lastContext, "\n\n", 2)[0]
	assert.Len(t, strings.Split(historyBlock, "\n"), HistoryLimit)

	full, err := store.History(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	assert.Len(t, full, 26, "full history stays retrievable past the cap")
}

func TestAsk_ContextAssembly(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	llm := &fakeLLM{}
	svc := NewQueryService(store, &fakeEmbedder{}, index, llm)
	seedDocument(t, index, "doc-1", "alpha", "beta")
	seedDocument(t, index, "doc-2", "other document chunk")

	resp, err := svc.Ask(context.Background(), "doc-1", "tell me")
	require.NoError(t, err)

	assert.NotContains(t, resp.ContextUsed, "other document chunk", "search must be scoped to the doc")
	for _, line := range strings.Split(resp.ContextUsed, "\n") {
		assert.Contains(t, []string{"alpha", "beta"}, line)
	}

	// combined block: formatted history, blank line, retrieved context
	assert.Equal(t, "User: tell me\n\n"+resp.ContextUsed, llm.lastContext)
	assert.Equal(t, "tell me", llm.lastQuestion)
}

func TestAsk_SearchLimitIsFive(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	svc := NewQueryService(store, &fakeEmbedder{}, index, &fakeLLM{})
	seedDocument(t, index, "doc-1", "c1", "c2", "c3", "c4", "c5", "c6", "c7")

	resp, err := svc.Ask(context.Background(), "doc-1", "anything")
	require.NoError(t, err)
	assert.Len(t, strings.Split(resp.ContextUsed, "\n"), SearchLimit)
}

func TestAsk_LLMFailureStillRecordsSentinelAnswer(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	svc := NewQueryService(store, &fakeEmbedder{}, index, &fakeLLM{failWith: "Gemini error: quota exceeded"})
	seedDocument(t, index, "doc-1", "chunk")

	resp, err := svc.Ask(context.Background(), "doc-1", "question?")
	require.NoError(t, err, "an LLM failure is not a pipeline error")
	assert.Equal(t, "Gemini error: quota exceeded", resp.Answer)

	history, err := store.History(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Gemini error: quota exceeded", history[1].Content)
}

func TestAsk_EmbeddingFailurePropagatesAfterUserAppend(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	svc := NewQueryService(store, &fakeEmbedder{embedErr: errors.New("ollama down")}, index, &fakeLLM{})

	_, err := svc.Ask(context.Background(), "doc-1", "question?")
	require.Error(t, err)

	history, errH := store.History(context.Background(), "doc-1", 0)
	require.NoError(t, errH)
	require.Len(t, history, 1, "the question must be recorded even when the pipeline fails later")
	assert.Equal(t, "user", history[0].Role)
}

func TestAsk_SearchFailurePropagates(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	index.searchErr = errors.New("vector store down")
	svc := NewQueryService(store, &fakeEmbedder{}, index, &fakeLLM{})

	_, err := svc.Ask(context.Background(), "doc-1", "question?")
	assert.Error(t, err)
}

func TestAsk_ConcurrentQuestionsLoseNoMessages(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex()
	svc := NewQueryService(store, &fakeEmbedder{}, index, &fakeLLM{})
	seedDocument(t, index, "doc-1", "chunk")

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Ask(context.Background(), "doc-1", "concurrent?")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history, err := store.History(context.Background(), "doc-1", 0)
	require.NoError(t, err)
	assert.Len(t, history, 4, "each invocation contributes exactly one user and one assistant message")

	var users, assistants int
	for _, msg := range history {
		switch msg.Role {
		case "user":
			users++
		case "assistant":
			assistants++
		}
	}
	assert.Equal(t, 2, users)
	assert.Equal(t, 2, assistants)
}

func TestFormatHistory(t *testing.T) {
	history := []models.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	assert.Equal(t, "User: hi\nAssistant: hello", formatHistory(history))
	assert.Equal(t, "", formatHistory(nil))
}
