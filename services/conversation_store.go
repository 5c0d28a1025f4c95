package services

import (
	"context"
	"errors"
	"fmt"

	"github/smartnotes/rag/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationStore persists one record per uploaded document together
// with its ordered message history.
type ConversationStore interface {
	Create(ctx context.Context, conv *models.Conversation) error
	AppendMessage(ctx context.Context, docID string, msg models.Message) error
	History(ctx context.Context, docID string, limit int) ([]models.Message, error)
	ListAll(ctx context.Context) ([]models.ChatSummary, error)
	FindByID(ctx context.Context, id string) (*models.Conversation, error)
	Delete(ctx context.Context, docID string) error
}

// MongoStore is the MongoDB-backed ConversationStore.
type MongoStore struct {
	client        *mongo.Client
	conversations *mongo.Collection
}

// NewMongoStore wraps the conversations collection of the given database
// and ensures the unique doc_id index exists.
func NewMongoStore(ctx context.Context, client *mongo.Client, database string) (*MongoStore, error) {
	coll := client.Database(database).Collection("conversations")

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "doc_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure doc_id index: %w", err)
	}

	return &MongoStore{client: client, conversations: coll}, nil
}

// Create inserts a new conversation record. A doc_id collision reports
// ErrDuplicate; with UUID generation this should not happen in practice.
func (s *MongoStore) Create(ctx context.Context, conv *models.Conversation) error {
	_, err := s.conversations.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("doc %s: %w", conv.DocID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// AppendMessage atomically pushes one message onto the document's history,
// creating a minimal record if none exists. Concurrent appends on the same
// doc_id never lose a message; their relative order is up to the store.
func (s *MongoStore) AppendMessage(ctx context.Context, docID string, msg models.Message) error {
	_, err := s.conversations.UpdateOne(ctx,
		bson.M{"doc_id": docID},
		bson.M{"$push": bson.M{"history": msg}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to append message for doc %s: %w", docID, err)
	}
	return nil
}

// History returns the last limit messages in insertion order. A limit of
// zero or less returns the full history. A missing document yields an
// empty history, not an error.
func (s *MongoStore) History(ctx context.Context, docID string, limit int) ([]models.Message, error) {
	opts := options.FindOne()
	if limit > 0 {
		opts.SetProjection(bson.M{"history": bson.M{"$slice": -limit}})
	}

	var conv models.Conversation
	err := s.conversations.FindOne(ctx, bson.M{"doc_id": docID}, opts).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load history for doc %s: %w", docID, err)
	}
	return conv.History, nil
}

// ListAll returns the id/name/doc_id projection of every conversation.
func (s *MongoStore) ListAll(ctx context.Context) ([]models.ChatSummary, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1, "name": 1, "doc_id": 1})
	cursor, err := s.conversations.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Name  string             `bson:"name"`
		DocID string             `bson:"doc_id"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}

	chats := make([]models.ChatSummary, 0, len(rows))
	for _, row := range rows {
		chats = append(chats, models.ChatSummary{
			ID:    row.ID.Hex(),
			Name:  row.Name,
			DocID: row.DocID,
		})
	}
	return chats, nil
}

// FindByID looks a conversation up by its Mongo object id hex, falling
// back to doc_id so both the sidebar id and the ingest-returned id work.
// Absence reports ErrNotFound.
func (s *MongoStore) FindByID(ctx context.Context, id string) (*models.Conversation, error) {
	filter := bson.M{"doc_id": id}
	if objectID, err := primitive.ObjectIDFromHex(id); err == nil {
		filter = bson.M{"$or": bson.A{bson.M{"_id": objectID}, bson.M{"doc_id": id}}}
	}

	var conv models.Conversation
	err := s.conversations.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Delete removes the record for docID. Deleting an absent record is a
// no-op.
func (s *MongoStore) Delete(ctx context.Context, docID string) error {
	_, err := s.conversations.DeleteOne(ctx, bson.M{"doc_id": docID})
	if err != nil {
		return fmt.Errorf("failed to delete conversation for doc %s: %w", docID, err)
	}
	return nil
}

// Close disconnects the underlying client. Intended for tests and
// graceful shutdown; the process otherwise holds the connection for life.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
