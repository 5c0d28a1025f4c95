package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"google.golang.org/genai"
)

const geminiModel = "gemini-2.5-flash"

// LLMClient answers a question given an assembled context block. A remote
// failure never surfaces as an error; implementations return a descriptive
// sentinel answer instead, so the conversation always gets a reply.
type LLMClient interface {
	Ask(ctx context.Context, contextBlock, question string) string
}

// GeminiClient renders the document-chat prompt and sends it to Gemini.
type GeminiClient struct {
	client *genai.Client
	prompt prompts.PromptTemplate
}

// NewGeminiClient wraps an initialized genai client.
func NewGeminiClient(client *genai.Client) *GeminiClient {
	template := prompts.NewPromptTemplate(
		"### Document Context:\n{{.context}}\n\n"+
			"### User Question:\n{{.question}}\n\n"+
			"### Answer:",
		[]string{"context", "question"},
	)
	return &GeminiClient{client: client, prompt: template}
}

// Ask fills the prompt template and asks Gemini. Any failure along the way
// is folded into a sentinel answer string.
func (g *GeminiClient) Ask(ctx context.Context, contextBlock, question string) string {
	rendered, err := g.prompt.Format(map[string]any{
		"context":  contextBlock,
		"question": question,
	})
	if err != nil {
		return fmt.Sprintf("Gemini error: could not render prompt: %v", err)
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, genai.Text(rendered), &genai.GenerateContentConfig{
		SystemInstruction: GetSystemPrompt(),
		Temperature:       genai.Ptr[float32](0.4),
		MaxOutputTokens:   2048,
	})
	if err != nil {
		log.Printf("SERVICE WARN: gemini api call failed: %v", err)
		return fmt.Sprintf("Gemini error: %v", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "No response from Gemini."
	}

	var responseText strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			responseText.WriteString(p.Text)
		}
	}
	answer := strings.TrimSpace(responseText.String())
	if answer == "" {
		return "No response from Gemini."
	}
	return answer
}
