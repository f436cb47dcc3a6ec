package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EngagementRepository defines the interface for engagement edges
type EngagementRepository interface {
	AddEdge(ctx context.Context, kind models.EdgeKind, subject models.Subject, userID uint) (bool, error)
	RemoveEdge(ctx context.Context, kind models.EdgeKind, subject models.Subject, userID uint) (bool, error)
	CountEdges(ctx context.Context, kind models.EdgeKind, subject models.Subject, excludeUserID uint) (int64, error)
	GetUserIDs(ctx context.Context, kind models.EdgeKind, subject models.Subject) ([]uint, error)
	GetEdgeSubjectIDs(ctx context.Context, kind models.EdgeKind, subjectType models.SubjectType, userID uint, ids []uint64) (map[uint64]bool, error)
	DeleteBySubjects(ctx context.Context, subjectType models.SubjectType, ids []uint64) error
}

type postgresEngagementRepository struct {
	db *gorm.DB
}

func NewPostgresEngagementRepository(db *gorm.DB) EngagementRepository {
	return &postgresEngagementRepository{db: db}
}

// AddEdge inserts the edge unless it exists; the unique index settles concurrent double inserts
func (r *postgresEngagementRepository) AddEdge(ctx context.Context, kind models.EdgeKind, subject models.Subject, userID uint) (bool, error) {
	edge := &models.EngagementEdge{
		Kind:        kind,
		SubjectType: subject.Type,
		SubjectID:   subject.ID,
		UserID:      userID,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "kind"}, {Name: "subject_type"}, {Name: "subject_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(edge)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresEngagementRepository) RemoveEdge(ctx context.Context, kind models.EdgeKind, subject models.Subject, userID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("kind = ? AND subject_type = ? AND subject_id = ? AND user_id = ?", kind, subject.Type, subject.ID, userID).
		Delete(&models.EngagementEdge{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresEngagementRepository) CountEdges(ctx context.Context, kind models.EdgeKind, subject models.Subject, excludeUserID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.EngagementEdge{}).
		Where("kind = ? AND subject_type = ? AND subject_id = ? AND user_id <> ?", kind, subject.Type, subject.ID, excludeUserID).
		Count(&count).Error
	return count, err
}

func (r *postgresEngagementRepository) GetUserIDs(ctx context.Context, kind models.EdgeKind, subject models.Subject) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.EngagementEdge{}).
		Where("kind = ? AND subject_type = ? AND subject_id = ?", kind, subject.Type, subject.ID).
		Order("id").
		Pluck("user_id", &ids).Error
	return ids, err
}

func (r *postgresEngagementRepository) GetEdgeSubjectIDs(ctx context.Context, kind models.EdgeKind, subjectType models.SubjectType, userID uint, ids []uint64) (map[uint64]bool, error) {
	result := make(map[uint64]bool)
	if len(ids) == 0 {
		return result, nil
	}
	var found []uint64
	err := r.db.WithContext(ctx).Model(&models.EngagementEdge{}).
		Where("kind = ? AND subject_type = ? AND user_id = ? AND subject_id IN ?", kind, subjectType, userID, ids).
		Pluck("subject_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		result[id] = true
	}
	return result, nil
}

func (r *postgresEngagementRepository) DeleteBySubjects(ctx context.Context, subjectType models.SubjectType, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id IN ?", subjectType, ids).
		Delete(&models.EngagementEdge{}).Error
}
