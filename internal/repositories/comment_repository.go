package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment payloads
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByPublicationID(ctx context.Context, publicationID uint64) (*models.Comment, error)
	GetCommentsByNoteID(ctx context.Context, noteID uint64) ([]models.Comment, error)
	GetLatestComments(ctx context.Context, noteID uint64, limit int) ([]models.Comment, error)
	CountByNoteID(ctx context.Context, noteID uint64) (int64, error)
	DeleteComment(ctx context.Context, publicationID uint64) error
	DeleteByNoteID(ctx context.Context, noteID uint64) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

// CreateComment creates a new comment payload
func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// GetCommentByPublicationID retrieves a comment by its publication
func (r *PostgresCommentRepository) GetCommentByPublicationID(ctx context.Context, publicationID uint64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, publicationID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetCommentsByNoteID retrieves all comments of a note, oldest first
func (r *PostgresCommentRepository) GetCommentsByNoteID(ctx context.Context, noteID uint64) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).Where("note_id = ?", noteID).Order("publication_id").Find(&comments).Error
	return comments, err
}

// GetLatestComments returns the newest comments of a note in display order (oldest first)
func (r *PostgresCommentRepository) GetLatestComments(ctx context.Context, noteID uint64, limit int) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("publication_id DESC").
		Limit(limit).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(comments)-1; i < j; i, j = i+1, j-1 {
		comments[i], comments[j] = comments[j], comments[i]
	}
	return comments, nil
}

func (r *PostgresCommentRepository) CountByNoteID(ctx context.Context, noteID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("note_id = ?", noteID).Count(&count).Error
	return count, err
}

// DeleteComment deletes a comment payload
func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, publicationID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Comment{}, publicationID).Error
}

func (r *PostgresCommentRepository) DeleteByNoteID(ctx context.Context, noteID uint64) error {
	return r.db.WithContext(ctx).Where("note_id = ?", noteID).Delete(&models.Comment{}).Error
}
