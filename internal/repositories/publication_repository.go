package repositories

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RangeQuery selects publications by id range, newest first
type RangeQuery struct {
	Publishers []uint // nil selects every publisher
	After      uint64 // exclusive lower bound, 0 for none
	Before     uint64 // exclusive upper bound, 0 for none
	Limit      int
	// LatestPerNote keeps only the newest publication of each note inside the range.
	LatestPerNote bool
	// ExcludeSession drops notes already delivered to that timeline session.
	ExcludeSession string
}

// PublicationRepository defines the interface for the publication ledger
type PublicationRepository interface {
	CreatePublication(ctx context.Context, pub *models.Publication) (bool, error)
	GetPublicationByID(ctx context.Context, id uint64) (*models.Publication, error)
	GetPublicationsByIDs(ctx context.Context, ids []uint64) ([]models.Publication, error)
	GetOriginal(ctx context.Context, noteID uint64) (*models.Publication, error)
	GetReshare(ctx context.Context, noteID uint64, userID uint) (*models.Publication, error)
	DeleteReshare(ctx context.Context, noteID uint64, userID uint) (bool, error)
	DeletePublication(ctx context.Context, id uint64) error
	GetPublicationIDsByNote(ctx context.Context, noteID uint64, kind models.PublicationKind) ([]uint64, error)
	DeleteByNote(ctx context.Context, noteID uint64) error
	CountReshares(ctx context.Context, noteID uint64, excludeUserID uint) (int64, error)
	GetResharerIDs(ctx context.Context, noteID uint64) ([]uint, error)
	GetResharedNoteIDs(ctx context.Context, userID uint, noteIDs []uint64) (map[uint64]bool, error)
	RangeQuery(ctx context.Context, q RangeQuery) ([]models.Publication, error)
}

// PostgresPublicationRepository implements PublicationRepository for PostgreSQL
type PostgresPublicationRepository struct {
	db *gorm.DB
}

// NewPostgresPublicationRepository creates a new PostgresPublicationRepository
func NewPostgresPublicationRepository(db *gorm.DB) *PostgresPublicationRepository {
	return &PostgresPublicationRepository{db: db}
}

// OriginalKey is the dedup key of the original publication of a note
func OriginalKey(noteID uint64) *string {
	key := fmt.Sprintf("original:%d", noteID)
	return &key
}

// ReshareKey is the dedup key of a user's reshare of a note
func ReshareKey(noteID uint64, userID uint) *string {
	key := fmt.Sprintf("reshare:%d:%d", noteID, userID)
	return &key
}

// CreatePublication appends to the ledger. It reports false, without error,
// when the dedup key already exists.
func (r *PostgresPublicationRepository) CreatePublication(ctx context.Context, pub *models.Publication) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_key"}}, DoNothing: true}).
		Create(pub)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresPublicationRepository) GetPublicationByID(ctx context.Context, id uint64) (*models.Publication, error) {
	var pub models.Publication
	if err := r.db.WithContext(ctx).First(&pub, id).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetPublicationsByIDs loads publications newest first
func (r *PostgresPublicationRepository) GetPublicationsByIDs(ctx context.Context, ids []uint64) ([]models.Publication, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var pubs []models.Publication
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id DESC").Find(&pubs).Error
	return pubs, err
}

func (r *PostgresPublicationRepository) GetOriginal(ctx context.Context, noteID uint64) (*models.Publication, error) {
	var pub models.Publication
	err := r.db.WithContext(ctx).
		Where("note_id = ? AND kind = ?", noteID, models.PublicationOriginal).
		First(&pub).Error
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *PostgresPublicationRepository) GetReshare(ctx context.Context, noteID uint64, userID uint) (*models.Publication, error) {
	var pub models.Publication
	err := r.db.WithContext(ctx).
		Where("note_id = ? AND publisher_id = ? AND kind = ?", noteID, userID, models.PublicationReshare).
		First(&pub).Error
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

func (r *PostgresPublicationRepository) DeleteReshare(ctx context.Context, noteID uint64, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("note_id = ? AND publisher_id = ? AND kind = ?", noteID, userID, models.PublicationReshare).
		Delete(&models.Publication{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PostgresPublicationRepository) DeletePublication(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Publication{}, id).Error
}

// GetPublicationIDsByNote lists publication ids of a note; an empty kind lists all of them
func (r *PostgresPublicationRepository) GetPublicationIDsByNote(ctx context.Context, noteID uint64, kind models.PublicationKind) ([]uint64, error) {
	var ids []uint64
	q := r.db.WithContext(ctx).Model(&models.Publication{}).Where("note_id = ?", noteID)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	err := q.Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *PostgresPublicationRepository) DeleteByNote(ctx context.Context, noteID uint64) error {
	return r.db.WithContext(ctx).Where("note_id = ?", noteID).Delete(&models.Publication{}).Error
}

func (r *PostgresPublicationRepository) CountReshares(ctx context.Context, noteID uint64, excludeUserID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Publication{}).
		Where("note_id = ? AND kind = ? AND publisher_id <> ?", noteID, models.PublicationReshare, excludeUserID).
		Count(&count).Error
	return count, err
}

func (r *PostgresPublicationRepository) GetResharerIDs(ctx context.Context, noteID uint64) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Publication{}).
		Where("note_id = ? AND kind = ?", noteID, models.PublicationReshare).
		Order("id").
		Pluck("publisher_id", &ids).Error
	return ids, err
}

func (r *PostgresPublicationRepository) GetResharedNoteIDs(ctx context.Context, userID uint, noteIDs []uint64) (map[uint64]bool, error) {
	result := make(map[uint64]bool)
	if len(noteIDs) == 0 {
		return result, nil
	}
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.Publication{}).
		Where("publisher_id = ? AND kind = ? AND note_id IN ?", userID, models.PublicationReshare, noteIDs).
		Pluck("note_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// RangeQuery is the single read primitive of the feed. The id selection is
// built with squirrel so the windowed form stays readable; rows are then
// loaded through gorm.
func (r *PostgresPublicationRepository) RangeQuery(ctx context.Context, q RangeQuery) ([]models.Publication, error) {
	query, args, err := buildRangeQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build range query: %w", err)
	}

	var ids []uint64
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&ids).Error; err != nil {
		return nil, err
	}
	return r.GetPublicationsByIDs(ctx, ids)
}

func buildRangeQuery(q RangeQuery) sq.SelectBuilder {
	inner := sq.Select("id").From("publications")
	if q.Publishers != nil {
		inner = inner.Where(sq.Eq{"publisher_id": q.Publishers})
	}
	if q.After > 0 {
		inner = inner.Where(sq.Gt{"id": q.After})
	}
	if q.Before > 0 {
		inner = inner.Where(sq.Lt{"id": q.Before})
	}

	query, alias := inner, "publications"
	if q.LatestPerNote {
		inner = inner.Columns("note_id", "ROW_NUMBER() OVER (PARTITION BY note_id ORDER BY id DESC) AS rn")
		alias = "ranked"
		query = sq.Select("ranked.id").FromSelect(inner, alias).Where("ranked.rn = 1")
	}
	if q.ExcludeSession != "" {
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM timeline_deliveries d WHERE d.session_id = ? AND d.note_id = "+alias+".note_id)",
			q.ExcludeSession,
		)
	}
	query = query.OrderBy(alias + ".id DESC")
	if q.Limit > 0 {
		query = query.Limit(uint64(q.Limit))
	}
	return query
}
