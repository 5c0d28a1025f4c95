package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one turn of a document conversation.
type Message struct {
	Role    string `bson:"role" json:"role"`
	Content string `bson:"content" json:"content"`
}

// Conversation is the per-document record in MongoDB. History is
// append-only; the vector points for the document live in the vector
// collection and are reachable only through DocID.
type Conversation struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	DocID      string             `bson:"doc_id" json:"doc_id"`
	Name       string             `bson:"name" json:"name"`
	FilePath   string             `bson:"file_path" json:"file_path"`
	Collection string             `bson:"qdrant_collection" json:"collection"`
	History    []Message          `bson:"history" json:"history"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}

// ChatSummary is the sidebar projection of a Conversation. ID carries the
// hex form of the Mongo object id.
type ChatSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	DocID string `json:"doc_id"`
}
