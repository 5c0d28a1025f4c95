package models

// VectorPoint is one embedded chunk ready for upsert. The point id has no
// relation to chunk position; both are generated fresh at embed time.
type VectorPoint struct {
	ID     string
	Vector []float32
	DocID  string
	Text   string
}

// SearchResult is a retrieved chunk with its similarity score.
type SearchResult struct {
	ID    string
	Text  string
	Score float32
}
