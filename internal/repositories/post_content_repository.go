package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ErrContentNotFound is returned when a plain-post content record is missing
var ErrContentNotFound = errors.New("post content not found")

// PostContentRepository stores the mutable body of plain posts
type PostContentRepository interface {
	CreateContent(ctx context.Context, content *models.PostContent) error
	GetContent(ctx context.Context, id string) (*models.PostContent, error)
	GetContents(ctx context.Context, ids []string) (map[string]*models.PostContent, error)
	UpdateContent(ctx context.Context, id, text, assetHandle string) error
	DeleteContent(ctx context.Context, id string) error
}

// MongoPostContentRepository implements PostContentRepository for MongoDB
type MongoPostContentRepository struct {
	collection *mongo.Collection
}

// NewMongoPostContentRepository creates a new MongoPostContentRepository
func NewMongoPostContentRepository(db *mongo.Database) *MongoPostContentRepository {
	return &MongoPostContentRepository{collection: db.Collection("post_contents")}
}

// CreateContent creates a new content document
func (r *MongoPostContentRepository) CreateContent(ctx context.Context, content *models.PostContent) error {
	content.ID = primitive.NewObjectID().Hex()
	content.CreatedAt = time.Now()
	content.UpdatedAt = content.CreatedAt
	_, err := r.collection.InsertOne(ctx, content)
	return err
}

func (r *MongoPostContentRepository) GetContent(ctx context.Context, id string) (*models.PostContent, error) {
	var content models.PostContent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&content)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *MongoPostContentRepository) GetContents(ctx context.Context, ids []string) (map[string]*models.PostContent, error) {
	result := make(map[string]*models.PostContent, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var contents []models.PostContent
	if err = cursor.All(ctx, &contents); err != nil {
		return nil, err
	}
	for i := range contents {
		result[contents[i].ID] = &contents[i]
	}
	return result, nil
}

func (r *MongoPostContentRepository) UpdateContent(ctx context.Context, id, text, assetHandle string) error {
	update := bson.M{
		"$set": bson.M{
			"text":         text,
			"asset_handle": assetHandle,
			"updated_at":   time.Now(),
		},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *MongoPostContentRepository) DeleteContent(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PostgresPostContentRepository keeps post contents in PostgreSQL when MongoDB is not configured
type PostgresPostContentRepository struct {
	db *gorm.DB
}

// NewPostgresPostContentRepository creates a new PostgresPostContentRepository
func NewPostgresPostContentRepository(db *gorm.DB) *PostgresPostContentRepository {
	return &PostgresPostContentRepository{db: db}
}

func (r *PostgresPostContentRepository) CreateContent(ctx context.Context, content *models.PostContent) error {
	content.ID = uuid.NewString()
	return r.db.WithContext(ctx).Create(content).Error
}

func (r *PostgresPostContentRepository) GetContent(ctx context.Context, id string) (*models.PostContent, error) {
	var content models.PostContent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&content).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}
	return &content, nil
}

func (r *PostgresPostContentRepository) GetContents(ctx context.Context, ids []string) (map[string]*models.PostContent, error) {
	result := make(map[string]*models.PostContent, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var contents []models.PostContent
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&contents).Error; err != nil {
		return nil, err
	}
	for i := range contents {
		result[contents[i].ID] = &contents[i]
	}
	return result, nil
}

func (r *PostgresPostContentRepository) UpdateContent(ctx context.Context, id, text, assetHandle string) error {
	res := r.db.WithContext(ctx).Model(&models.PostContent{}).Where("id = ?", id).
		Updates(map[string]any{"text": text, "asset_handle": assetHandle, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrContentNotFound
	}
	return nil
}

func (r *PostgresPostContentRepository) DeleteContent(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PostContent{}).Error
}
