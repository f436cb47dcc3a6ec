package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NotificationRepository defines the interface for notification operations
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification *models.Notification) (bool, error)
	RefreshNotification(ctx context.Context, notification *models.Notification) (bool, error)
	GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error)
	GetGrouped(ctx context.Context, recipientID uint) ([]models.Notification, []models.Notification, []models.Notification, []models.Notification, error)
	GetUnreadCount(ctx context.Context, recipientID uint) (int64, error)
	MarkAsSeen(ctx context.Context, recipientID, notificationID uint) (bool, error)
	MarkAllAsSeen(ctx context.Context, recipientID uint) error
	MarkRemoved(ctx context.Context, recipientID, notificationID uint) (bool, error)
	RetractEvent(ctx context.Context, kind models.EventKind, actorID uint, publicationID uint64) error
	DeleteByPublicationIDs(ctx context.Context, publicationIDs []uint64) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

// CreateNotification inserts unless the recipient already has one for the publication
func (r *postgresNotificationRepository) CreateNotification(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "publication_id"}},
		DoNothing: true,
	}).Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RefreshNotification inserts, or takes over the recipient's row for the
// publication when it has the same type and was removed or names another actor.
// The row becomes unseen again and carries the new actor and time.
func (r *postgresNotificationRepository) RefreshNotification(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "recipient_id"}, {Name: "publication_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"actor_id":   gorm.Expr("excluded.actor_id"),
			"email":      gorm.Expr("excluded.email"),
			"created_at": gorm.Expr("excluded.created_at"),
			"seen":       false,
			"removed":    false,
		}),
		Where: clause.Where{Exprs: []clause.Expression{clause.Expr{
			SQL:  "notifications.type = excluded.type AND (notifications.removed = ? OR notifications.actor_id <> excluded.actor_id)",
			Vars: []interface{}{true},
		}}},
	}).Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postgresNotificationRepository) visible(ctx context.Context, recipientID uint) *gorm.DB {
	return r.db.WithContext(ctx).Where("recipient_id = ? AND removed = ?", recipientID, false)
}

func (r *postgresNotificationRepository) GetByRecipientID(ctx context.Context, recipientID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	if err := r.visible(ctx, recipientID).Model(&models.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := r.visible(ctx, recipientID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetGrouped(ctx context.Context, recipientID uint) (today, yesterday, thisWeek, older []models.Notification, retErr error) {
	now := time.Now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterdayStart := todayStart.AddDate(0, 0, -1)
	weekStart := todayStart.AddDate(0, 0, -7)

	// Today
	if err := r.visible(ctx, recipientID).Where("created_at >= ?", todayStart).
		Order("created_at DESC").Find(&today).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	// Yesterday
	if err := r.visible(ctx, recipientID).Where("created_at >= ? AND created_at < ?", yesterdayStart, todayStart).
		Order("created_at DESC").Find(&yesterday).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	// This week (excluding today and yesterday)
	if err := r.visible(ctx, recipientID).Where("created_at >= ? AND created_at < ?", weekStart, yesterdayStart).
		Order("created_at DESC").Find(&thisWeek).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	// Older
	if err := r.visible(ctx, recipientID).Where("created_at < ?", weekStart).
		Order("created_at DESC").Limit(50).Find(&older).Error; err != nil {
		return nil, nil, nil, nil, err
	}

	return today, yesterday, thisWeek, older, nil
}

func (r *postgresNotificationRepository) GetUnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	var count int64
	err := r.visible(ctx, recipientID).Model(&models.Notification{}).Where("seen = ?", false).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsSeen(ctx context.Context, recipientID, notificationID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("seen", true)
	return res.RowsAffected > 0, res.Error
}

func (r *postgresNotificationRepository) MarkAllAsSeen(ctx context.Context, recipientID uint) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND seen = ?", recipientID, false).
		Update("seen", true).Error
}

func (r *postgresNotificationRepository) MarkRemoved(ctx context.Context, recipientID, notificationID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", notificationID, recipientID).
		Update("removed", true)
	return res.RowsAffected > 0, res.Error
}

// RetractEvent hides the notifications an actor caused on a publication
func (r *postgresNotificationRepository) RetractEvent(ctx context.Context, kind models.EventKind, actorID uint, publicationID uint64) error {
	return r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("type = ? AND actor_id = ? AND publication_id = ?", kind, actorID, publicationID).
		Update("removed", true).Error
}

func (r *postgresNotificationRepository) DeleteByPublicationIDs(ctx context.Context, publicationIDs []uint64) error {
	if len(publicationIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("publication_id IN ?", publicationIDs).Delete(&models.Notification{}).Error
}
