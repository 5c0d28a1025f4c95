package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github/smartnotes/rag/models"
	"github/smartnotes/rag/services"
)

// RAGController handles the HTTP surface of the document chat service. It
// delegates all business logic to the pipeline services.
type RAGController struct {
	ingest   *services.IngestService
	query    *services.QueryService
	deletion *services.DeletionService
	store    services.ConversationStore
}

// NewRAGController is called from main.go to inject the pipeline
// dependencies.
func NewRAGController(ingest *services.IngestService, query *services.QueryService, deletion *services.DeletionService, store services.ConversationStore) *RAGController {
	return &RAGController{
		ingest:   ingest,
		query:    query,
		deletion: deletion,
		store:    store,
	}
}

func readUpload(ctx *gin.Context) (string, []byte, error) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file field: %w", err)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return fileHeader.Filename, data, nil
}

// UploadPDF is the handler for POST /api/upload. It runs the ingest
// pipeline synchronously and returns the new doc_id.
func (c *RAGController) UploadPDF(ctx *gin.Context) {
	filename, data, err := readUpload(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	docID, err := c.ingest.Ingest(ctx.Request.Context(), filename, data)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process PDF"})
		return
	}

	ctx.JSON(http.StatusOK, models.UploadResponse{
		DocID:   docID,
		Message: "PDF uploaded and processed successfully.",
	})
}

// UploadPDFStream is the handler for POST /api/upload-stream. Progress is
// delivered as server-sent events; the stream always terminates with an
// explicit end event, even when a pipeline stage fails.
func (c *RAGController) UploadPDFStream(ctx *gin.Context) {
	filename, data, err := readUpload(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	ctx.Writer.Header().Set("Content-Type", "text/event-stream")
	ctx.Writer.Header().Set("Cache-Control", "no-cache")
	ctx.Writer.Header().Set("Connection", "keep-alive")
	ctx.Writer.WriteHeader(http.StatusOK)

	for event := range c.ingest.IngestStream(ctx.Request.Context(), filename, data) {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(ctx.Writer, "data: %s\n\n", payload)
		ctx.Writer.Flush()
	}

	fmt.Fprint(ctx.Writer, "event: end\ndata: {}\n\n")
	ctx.Writer.Flush()
}

// GetAllChats is the handler for GET /api/chats, backing the sidebar.
func (c *RAGController) GetAllChats(ctx *gin.Context) {
	chats, err := c.store.ListAll(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list chats"})
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	ctx.JSON(http.StatusOK, models.ChatListResponse{Chats: chats})
}

// DeleteChat is the handler for DELETE /api/chat/:id. Reports success once
// the conversation record is gone, even when vector or file cleanup
// partially failed.
func (c *RAGController) DeleteChat(ctx *gin.Context) {
	id := ctx.Param("id")

	err := c.deletion.Delete(ctx.Request.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"detail": "Chat not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete chat"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Chat and embeddings deleted successfully",
	})
}

// QueryPDF is the handler for POST /api/query.
func (c *RAGController) QueryPDF(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	response, err := c.query.Ask(ctx.Request.Context(), req.DocID, req.Question)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate AI response"})
		return
	}

	ctx.JSON(http.StatusOK, response)
}

// GetConversation is the handler for GET /api/conversations/:doc_id. The
// full history is returned; a missing document yields an empty history.
func (c *RAGController) GetConversation(ctx *gin.Context) {
	docID := ctx.Param("doc_id")

	history, err := c.store.History(ctx.Request.Context(), docID, 0)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversation"})
		return
	}
	if history == nil {
		history = []models.Message{}
	}
	ctx.JSON(http.StatusOK, models.HistoryResponse{History: history})
}
