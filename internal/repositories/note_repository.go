package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
)

// NoteRepository defines the interface for note data operations
type NoteRepository interface {
	CreateNote(ctx context.Context, note *models.Note) error
	GetNoteByID(ctx context.Context, id uint64) (*models.Note, error)
	GetNotesByIDs(ctx context.Context, ids []uint64) (map[uint64]*models.Note, error)
	GetNotesByTarget(ctx context.Context, kind models.NoteKind, targetRef string) ([]models.Note, error)
	MarkUnavailable(ctx context.Context, ids []uint64) (int64, error)
	DeleteNote(ctx context.Context, id uint64) error
}

// PostgresNoteRepository implements NoteRepository for PostgreSQL
type PostgresNoteRepository struct {
	db *gorm.DB
}

// NewPostgresNoteRepository creates a new PostgresNoteRepository
func NewPostgresNoteRepository(db *gorm.DB) *PostgresNoteRepository {
	return &PostgresNoteRepository{db: db}
}

func (r *PostgresNoteRepository) CreateNote(ctx context.Context, note *models.Note) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *PostgresNoteRepository) GetNoteByID(ctx context.Context, id uint64) (*models.Note, error) {
	var note models.Note
	if err := r.db.WithContext(ctx).First(&note, id).Error; err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *PostgresNoteRepository) GetNotesByIDs(ctx context.Context, ids []uint64) (map[uint64]*models.Note, error) {
	result := make(map[uint64]*models.Note, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var notes []models.Note
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&notes).Error; err != nil {
		return nil, err
	}
	for i := range notes {
		result[notes[i].ID] = &notes[i]
	}
	return result, nil
}

func (r *PostgresNoteRepository) GetNotesByTarget(ctx context.Context, kind models.NoteKind, targetRef string) ([]models.Note, error) {
	var notes []models.Note
	err := r.db.WithContext(ctx).
		Where("kind = ? AND target_ref = ?", kind, targetRef).
		Order("id").
		Find(&notes).Error
	return notes, err
}

// MarkUnavailable flags notes as unavailable and returns how many changed
func (r *PostgresNoteRepository) MarkUnavailable(ctx context.Context, ids []uint64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Note{}).
		Where("id IN ? AND unavailable = ?", ids, false).
		Update("unavailable", true)
	return res.RowsAffected, res.Error
}

func (r *PostgresNoteRepository) DeleteNote(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Note{}, id).Error
}
