package repository

import (
	"context"
	"time"

	"github.com/example/bistro/pkg/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Auditor records admin actions. Recording never fails the action.
type Auditor interface {
	Record(ctx context.Context, action, entityID string, data map[string]interface{})
}

type NopAuditor struct{}

func (NopAuditor) Record(context.Context, string, string, map[string]interface{}) {}

// AuditLog is one admin action as stored in Mongo.
type AuditLog struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Service   string    `bson:"service" json:"service"`
	Action    string    `bson:"action" json:"action"`
	EntityID  string    `bson:"entity_id" json:"entityId"`
	Data      bson.M    `bson:"data" json:"data,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}

type MongoAuditor struct {
	client     *mongo.Client
	collection *mongo.Collection
	service    string
	logger     *zap.Logger
}

func NewMongoAuditor(cfg *config.MongoDBConfig, service string, logger *zap.Logger) (*MongoAuditor, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return &MongoAuditor{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		service:    service,
		logger:     logger.Named("audit"),
	}, nil
}

func (m *MongoAuditor) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoAuditor) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoAuditor) Record(ctx context.Context, action, entityID string, data map[string]interface{}) {
	entry := &AuditLog{
		Service:   m.service,
		Action:    action,
		EntityID:  entityID,
		Data:      bson.M(data),
		CreatedAt: time.Now(),
	}
	if _, err := m.collection.InsertOne(ctx, entry); err != nil {
		m.logger.Warn("Failed to write audit log",
			zap.String("action", action),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

func (m *MongoAuditor) History(ctx context.Context, entityID string, limit int64) ([]*AuditLog, error) {
	filter := bson.M{"entity_id": entityID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []*AuditLog
	if err = cursor.All(ctx, &logs); err != nil {
		return nil, err
	}

	return logs, nil
}
