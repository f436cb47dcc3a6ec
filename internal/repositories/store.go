package repositories

import (
	"context"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
)

// Store bundles the relational repositories that must share a transaction
type Store struct {
	db            *gorm.DB
	Notes         NoteRepository
	Publications  PublicationRepository
	Comments      CommentRepository
	Engagement    EngagementRepository
	Windows       TimelineRepository
	Notifications NotificationRepository
	Follows       FollowRepository
	Users         UserRepository
}

// NewStore wires every PostgreSQL repository onto the same handle
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Notes:         NewPostgresNoteRepository(db),
		Publications:  NewPostgresPublicationRepository(db),
		Comments:      NewPostgresCommentRepository(db),
		Engagement:    NewPostgresEngagementRepository(db),
		Windows:       NewPostgresTimelineRepository(db),
		Notifications: NewPostgresNotificationRepository(db),
		Follows:       NewPostgresFollowRepository(db),
		Users:         NewPostgresUserRepository(db),
	}
}

// Transaction runs fn against a Store bound to one database transaction
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB exposes the underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates every table the timeline owns
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Note{},
		&models.PostContent{},
		&models.Publication{},
		&models.Comment{},
		&models.EngagementEdge{},
		&models.TimelineDelivery{},
		&models.TimelineCursor{},
		&models.Notification{},
	)
}
