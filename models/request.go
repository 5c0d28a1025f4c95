package models

// QueryRequest is the form body of POST /api/query.
type QueryRequest struct {
	DocID    string `form:"doc_id" binding:"required"`
	Question string `form:"question" binding:"required"`
}
