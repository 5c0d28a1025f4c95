package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github/smartnotes/rag/controller"
	"github/smartnotes/rag/services"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/genai"
)

const collectionName = "smartnotes_docs"

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	// Vector store client
	var chromaOpts []chromago.ClientOption
	if chromaURL := os.Getenv("CHROMA_URL"); chromaURL != "" {
		chromaOpts = append(chromaOpts, chromago.WithBaseURL(chromaURL))
	}
	chromaClient, err := chromago.NewHTTPClient(chromaOpts...)
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	defer func() {
		if err := chromaClient.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}()

	index := services.NewChromaIndex(chromaClient, collectionName)
	if err := index.Ensure(ctx); err != nil {
		log.Fatalf("FATAL: Failed to get or create collection: %v", err)
	}
	log.Printf("Successfully got/created collection %q", collectionName)

	// Conversation store
	mongoURI := envOr("MONGO_URI", "mongodb://localhost:27017")
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to mongodb: %v", err)
	}
	store, err := services.NewMongoStore(ctx, mongoClient, envOr("MONGO_DB", "pdf_chat_db"))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize conversation store: %v", err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("Warning: Failed to disconnect mongodb: %v", err)
		}
	}()
	log.Println("Successfully connected to MongoDB.")

	// Gemini client
	geminiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	embedder := services.NewOllamaEmbedder(httpClient, envOr("OLLAMA_URL", "http://localhost:11434"), envOr("OLLAMA_EMBED_MODEL", "all-minilm"))
	blobs := services.NewFileStorage(envOr("UPLOAD_DIR", "uploads"))
	extractor := services.NewUniPDFExtractor()
	llm := services.NewGeminiClient(geminiClient)

	ingestService := services.NewIngestService(blobs, extractor, embedder, index, store, collectionName, nil)
	queryService := services.NewQueryService(store, embedder, index, llm)
	deletionService := services.NewDeletionService(store, index, blobs, nil)
	ragController := controller.NewRAGController(ingestService, queryService, deletionService, store)

	// Optional drop-folder ingestion
	if watchDir := os.Getenv("WATCH_DIR"); watchDir != "" {
		watcher := services.NewWatcherService(ingestService, nil)
		go watcher.WatchDirectory(ctx, watchDir)
	}

	// Setup Gin router
	router := gin.Default()

	// CORS middleware for the browser frontend
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		chunks, err := index.Count(c.Request.Context())
		if err != nil {
			log.Printf("Warning: Failed to count chunks: %v", err)
		}
		c.JSON(200, gin.H{
			"status":       "healthy",
			"service":      "SmartNotes RAG API",
			"total_chunks": chunks,
		})
	})

	api := router.Group("/api")
	{
		api.POST("/upload", ragController.UploadPDF)
		api.POST("/upload-stream", ragController.UploadPDFStream)
		api.GET("/chats", ragController.GetAllChats)
		api.DELETE("/chat/:id", ragController.DeleteChat)
		api.POST("/query", ragController.QueryPDF)
		api.GET("/conversations/:doc_id", ragController.GetConversation)
	}

	port := envOr("PORT", "8080")
	log.Printf("Go Gin backend server starting on http://localhost:%s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}
