package repositories

import (
	"context"
	"strings"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
	ResolveHandle(ctx context.Context, handle string) (uint, error)
	UpdateNotifyPrefs(ctx context.Context, id uint, notifyEvents, emailEvents uint32) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// CreateUser creates a new user; nicknames are stored lower-case
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.Nickname = strings.ToLower(user.Nickname)
	return r.db.WithContext(ctx).Create(user).Error
}

// GetUser retrieves a user by ID
func (r *PostgresUserRepository) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	result := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

// GetUserByFirebaseUID retrieves a user by Firebase UID
func (r *PostgresUserRepository) GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveHandle maps a mention handle (without '@') to a user ID
func (r *PostgresUserRepository) ResolveHandle(ctx context.Context, handle string) (uint, error) {
	var user models.User
	err := r.db.WithContext(ctx).Select("id").Where("nickname = ?", strings.ToLower(handle)).First(&user).Error
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

func (r *PostgresUserRepository) UpdateNotifyPrefs(ctx context.Context, id uint, notifyEvents, emailEvents uint32) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"notify_events": notifyEvents, "email_events": emailEvents})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
