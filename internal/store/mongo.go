package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/RecoveryAshes/pricewatch/internal/models"
)

// MongoObservations MongoDB观测端,配置了URI时与CSV双写
type MongoObservations struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoObservations 连接MongoDB并验证可达性
func NewMongoObservations(uri, database, collection string) (*MongoObservations, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("连接MongoDB失败: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB不可达: %w", err)
	}

	return &MongoObservations{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Append 批量插入一个批次的观测文档
func (m *MongoObservations) Append(runID string, at time.Time, results []*models.Result) error {
	docs := make([]interface{}, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}

		doc := bson.M{
			"run_id":     runID,
			"checked_at": at,
			"brand":      res.Product.Brand,
			"product":    res.Product.Name,
			"country":    res.Product.Country,
			"platform":   res.Product.Platform,
			"url":        res.Product.URL,
			"currency":   res.Currency,
			"page_title": res.PageTitle,
			"status":     string(res.Status),
			"duration_s": res.Duration,
		}
		if res.Price != nil {
			doc["price"] = *res.Price
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := m.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("插入观测文档失败: %w", err)
	}
	return nil
}

// Close 断开MongoDB连接
func (m *MongoObservations) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
