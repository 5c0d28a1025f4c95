package models

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	DocID   string `json:"doc_id"`
	Message string `json:"message"`
}

// QueryResponse is returned by POST /api/query.
type QueryResponse struct {
	Answer       string `json:"answer"`
	ContextUsed  string `json:"context_used"`
	HistoryCount int    `json:"history_count"`
}

// ChatListResponse is returned by GET /api/chats.
type ChatListResponse struct {
	Chats []ChatSummary `json:"chats"`
}

// HistoryResponse is returned by GET /api/conversations/:doc_id.
type HistoryResponse struct {
	History []Message `json:"history"`
}
