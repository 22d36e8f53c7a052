package chats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/docchat/internal/common"
	"github.com/dmitrijs2005/docchat/internal/server/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatsCollection = "chats"

type messageDocument struct {
	ID        string    `bson:"id"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type chatDocument struct {
	ID        string            `bson:"_id"`
	UserID    string            `bson:"user_id"`
	Title     string            `bson:"title"`
	Messages  []messageDocument `bson:"messages"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type summaryDocument struct {
	ID           string           `bson:"_id"`
	Title        string           `bson:"title"`
	MessageCount int              `bson:"message_count"`
	LastMessage  *messageDocument `bson:"last_message,omitempty"`
	CreatedAt    time.Time        `bson:"created_at"`
	UpdatedAt    time.Time        `bson:"updated_at"`
}

// MongoRepository keeps each chat as one document with its messages
// embedded, so every write is a single-document update.
type MongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{collection: db.Collection(chatsCollection), now: time.Now}
}

// EnsureIndexes creates the (user_id, updated_at) index used by ListByUser.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, userID, title string, first models.Message) (*models.Chat, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := chatDocument{
		ID:     uuid.NewString(),
		UserID: userID,
		Title:  title,
		Messages: []messageDocument{{
			ID: uuid.NewString(), Role: first.Role, Content: first.Content, CreatedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) ListByUser(ctx context.Context, userID string) ([]*models.ChatSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID}}},
		{{Key: "$sort", Value: bson.D{{Key: "updated_at", Value: -1}}}},
		{{Key: "$project", Value: bson.M{
			"title":         1,
			"created_at":    1,
			"updated_at":    1,
			"message_count": bson.M{"$size": "$messages"},
			"last_message":  bson.M{"$arrayElemAt": bson.A{"$messages", -1}},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []summaryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}

	result := make([]*models.ChatSummary, 0, len(docs))
	for _, d := range docs {
		result = append(result, d.toModel())
	}
	return result, nil
}

func (r *MongoRepository) Get(ctx context.Context, userID, chatID string) (*models.Chat, error) {
	var doc chatDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": chatID, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	return doc.toModel(), nil
}

func (r *MongoRepository) UpdateTitle(ctx context.Context, userID, chatID, title string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": chatID, "user_id": userID},
		bson.M{"$set": bson.M{"title": title, "updated_at": r.now().UTC()}})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) AppendMessage(ctx context.Context, userID, chatID string, msg models.Message) (*models.Message, error) {
	now := r.now().UTC().Truncate(time.Millisecond)
	doc := messageDocument{ID: uuid.NewString(), Role: msg.Role, Content: msg.Content, CreatedAt: now}

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": chatID, "user_id": userID},
		bson.M{
			"$push": bson.M{"messages": doc},
			"$set":  bson.M{"updated_at": now},
		})
	if err != nil {
		return nil, fmt.Errorf("mongo error: %w", err)
	}
	if res.MatchedCount == 0 {
		return nil, common.ErrorNotFound
	}
	m := doc.toModel(chatID)
	return &m, nil
}

func (r *MongoRepository) Delete(ctx context.Context, userID, chatID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": chatID, "user_id": userID})
	if err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	if res.DeletedCount == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *MongoRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID}); err != nil {
		return fmt.Errorf("mongo error: %w", err)
	}
	return nil
}

// Connect opens a client for uri and checks it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

func (d messageDocument) toModel(chatID string) models.Message {
	return models.Message{ID: d.ID, ChatID: chatID, Role: d.Role, Content: d.Content, CreatedAt: d.CreatedAt}
}

func (d chatDocument) toModel() *models.Chat {
	c := &models.Chat{
		ID:        d.ID,
		UserID:    d.UserID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	for _, m := range d.Messages {
		c.Messages = append(c.Messages, m.toModel(d.ID))
	}
	return c
}

func (d summaryDocument) toModel() *models.ChatSummary {
	s := &models.ChatSummary{
		ID:           d.ID,
		Title:        d.Title,
		MessageCount: d.MessageCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.LastMessage != nil {
		m := d.LastMessage.toModel(d.ID)
		s.LastMessage = &m
	}
	return s
}
