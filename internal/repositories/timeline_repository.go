package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TimelineRepository persists per-session timeline windows
type TimelineRepository interface {
	ResetWindow(ctx context.Context, sessionID string, viewerID uint, filter models.FeedFilter) error
	GetCursor(ctx context.Context, sessionID string) (*models.TimelineCursor, error)
	MarkDelivered(ctx context.Context, sessionID string, noteIDs []uint64) error
	SetBounds(ctx context.Context, sessionID string, first, last uint64) error
	AdvanceLastSeen(ctx context.Context, sessionID string, id uint64) error
	LowerFirstSeen(ctx context.Context, sessionID string, id uint64) error
	DeleteDeliveriesForNote(ctx context.Context, noteID uint64) error
	DeleteWindow(ctx context.Context, sessionID string) error
}

// PostgresTimelineRepository implements TimelineRepository for PostgreSQL
type PostgresTimelineRepository struct {
	db *gorm.DB
}

// NewPostgresTimelineRepository creates a new PostgresTimelineRepository
func NewPostgresTimelineRepository(db *gorm.DB) *PostgresTimelineRepository {
	return &PostgresTimelineRepository{db: db}
}

// ResetWindow empties the delivered set and zeroes the cursors of a session.
// An existing window keeps its viewer.
func (r *PostgresTimelineRepository) ResetWindow(ctx context.Context, sessionID string, viewerID uint, filter models.FeedFilter) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("session_id = ?", sessionID).Delete(&models.TimelineDelivery{}).Error; err != nil {
		return err
	}
	cursor := &models.TimelineCursor{
		SessionID: sessionID,
		ViewerID:  viewerID,
		Filter:    filter,
		UpdatedAt: time.Now(),
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"filter", "first_seen", "last_seen", "updated_at"}),
	}).Create(cursor).Error
}

func (r *PostgresTimelineRepository) GetCursor(ctx context.Context, sessionID string) (*models.TimelineCursor, error) {
	var cursor models.TimelineCursor
	if err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&cursor).Error; err != nil {
		return nil, err
	}
	return &cursor, nil
}

// MarkDelivered records notes as delivered; pairs already present are ignored
func (r *PostgresTimelineRepository) MarkDelivered(ctx context.Context, sessionID string, noteIDs []uint64) error {
	if len(noteIDs) == 0 {
		return nil
	}
	rows := make([]models.TimelineDelivery, len(noteIDs))
	for i, id := range noteIDs {
		rows[i] = models.TimelineDelivery{SessionID: sessionID, NoteID: id}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "note_id"}},
		DoNothing: true,
	}).Create(&rows).Error
}

func (r *PostgresTimelineRepository) SetBounds(ctx context.Context, sessionID string, first, last uint64) error {
	return r.db.WithContext(ctx).Model(&models.TimelineCursor{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{"first_seen": first, "last_seen": last, "updated_at": time.Now()}).Error
}

// AdvanceLastSeen only ever moves the upper cursor up
func (r *PostgresTimelineRepository) AdvanceLastSeen(ctx context.Context, sessionID string, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.TimelineCursor{}).
		Where("session_id = ? AND last_seen < ?", sessionID, id).
		Updates(map[string]any{"last_seen": id, "updated_at": time.Now()}).Error
}

// LowerFirstSeen only ever moves the lower cursor down
func (r *PostgresTimelineRepository) LowerFirstSeen(ctx context.Context, sessionID string, id uint64) error {
	return r.db.WithContext(ctx).Model(&models.TimelineCursor{}).
		Where("session_id = ? AND (first_seen = 0 OR first_seen > ?)", sessionID, id).
		Updates(map[string]any{"first_seen": id, "updated_at": time.Now()}).Error
}

func (r *PostgresTimelineRepository) DeleteDeliveriesForNote(ctx context.Context, noteID uint64) error {
	return r.db.WithContext(ctx).Where("note_id = ?", noteID).Delete(&models.TimelineDelivery{}).Error
}

// DeleteWindow drops everything stored for a session
func (r *PostgresTimelineRepository) DeleteWindow(ctx context.Context, sessionID string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("session_id = ?", sessionID).Delete(&models.TimelineDelivery{}).Error; err != nil {
		return err
	}
	return db.Where("session_id = ?", sessionID).Delete(&models.TimelineCursor{}).Error
}
