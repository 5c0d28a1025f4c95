package services

import "google.golang.org/genai"

// GetSystemPrompt defines the formatting instructions for the document
// assistant.
func GetSystemPrompt() *genai.Content {
	prompt := `You are an intelligent document assistant.
Answer the user's question strictly using the provided context.
Respond in clean Markdown formatting with:
- Headings (##)
- Bullet points and numbered lists
- **Bold keywords**
- Tables (if useful)
- Code blocks when necessary
- Proper spacing and paragraphs for readability

Do not invent information. If the context does not contain the answer, say so.`

	contents := genai.Text(prompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}
