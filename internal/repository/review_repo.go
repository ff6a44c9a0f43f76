package repository

import (
	"context"
	"errors"

	"triage-dashboard/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("not found")

// ReviewRepository 人工審核紀錄、通知設定與使用者
type ReviewRepository interface {
	// SaveDecisions 以 (analysis_id, domain) 為鍵 upsert，from 只在第一次寫入時記錄
	SaveDecisions(ctx context.Context, analysisID string, decisions []domain.ReviewDecision) error
	ListDecisions(ctx context.Context, analysisID string) ([]domain.ReviewDecision, error)

	GetSettings(ctx context.Context) (*domain.NotificationSettings, error)
	SaveSettings(ctx context.Context, settings domain.NotificationSettings) error

	FindUser(ctx context.Context, username string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	CountUsers(ctx context.Context) (int64, error)
}

type mongoReviewRepo struct {
	decisions *mongo.Collection
	settings  *mongo.Collection
	users     *mongo.Collection
}

func NewMongoReviewRepo(db *mongo.Database) ReviewRepository {
	return &mongoReviewRepo{
		decisions: db.Collection("review_decisions"),
		settings:  db.Collection("settings"),
		users:     db.Collection("users"),
	}
}

func (r *mongoReviewRepo) SaveDecisions(ctx context.Context, analysisID string, decisions []domain.ReviewDecision) error {
	if len(decisions) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(decisions))
	for _, d := range decisions {
		filter := bson.M{"analysis_id": analysisID, "domain": d.Domain}
		update := bson.M{
			"$set": bson.M{
				"to":         d.To,
				"decided_at": d.DecidedAt,
			},
			"$setOnInsert": bson.M{"from": d.From},
		}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	_, err := r.decisions.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *mongoReviewRepo) ListDecisions(ctx context.Context, analysisID string) ([]domain.ReviewDecision, error) {
	opts := options.Find().SetSort(bson.D{{Key: "decided_at", Value: -1}})
	cursor, err := r.decisions.Find(ctx, bson.M{"analysis_id": analysisID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []domain.ReviewDecision
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSettings 全域只有一筆設定
func (r *mongoReviewRepo) GetSettings(ctx context.Context) (*domain.NotificationSettings, error) {
	var settings domain.NotificationSettings
	err := r.settings.FindOne(ctx, bson.M{}).Decode(&settings)
	if err == mongo.ErrNoDocuments {
		return &domain.NotificationSettings{}, nil // 回傳空設定
	}
	return &settings, err
}

func (r *mongoReviewRepo) SaveSettings(ctx context.Context, settings domain.NotificationSettings) error {
	// 使用 Upsert，確保只有一筆設定
	opts := options.Update().SetUpsert(true)
	_, err := r.settings.UpdateOne(ctx, bson.M{}, bson.M{"$set": settings}, opts)
	return err
}

func (r *mongoReviewRepo) FindUser(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := r.users.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *mongoReviewRepo) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.users.InsertOne(ctx, user)
	return err
}

func (r *mongoReviewRepo) CountUsers(ctx context.Context) (int64, error) {
	return r.users.CountDocuments(ctx, bson.M{})
}
