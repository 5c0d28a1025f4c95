package models

// OllamaEmbedRequest is the body of Ollama's batch /api/embed endpoint.
type OllamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// OllamaEmbedResponse carries one embedding per input, in input order.
type OllamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}
