package database

import (
	"context"
	"time"

	"triage-dashboard/internal/conf"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect 初始化 MongoDB 連線
func Connect(ctx context.Context, cfg conf.MongoConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// 測試連線 (Ping)
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	logrus.Infof("成功連線至 MongoDB (%s)", cfg.Database)
	return client, nil
}

// EnsureIndexes 建立查詢需要的索引
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("review_decisions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "analysis_id", Value: 1}, {Key: "domain", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}
	_, err = db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
