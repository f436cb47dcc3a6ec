package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is the identity/preferences record the timeline reads from
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Nickname     string    `json:"nickname" gorm:"size:32;uniqueIndex"` // mention handle, stored lower-case
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email,omitempty" gorm:"index"`
	FirebaseUID  string    `json:"firebase_uid,omitempty" gorm:"index"`
	NotifyEvents uint32    `json:"notify_events"` // events that create notifications
	EmailEvents  uint32    `json:"email_events"`  // events that also request an e-mail
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserCompact is the author block attached to feed entries and notifications
type UserCompact struct {
	ID          uint   `json:"id"`
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
}

// ToCompact trims a user to what feed entries carry
func (u *User) ToCompact() UserCompact {
	return UserCompact{ID: u.ID, Nickname: u.Nickname, DisplayName: u.DisplayName}
}

// UpdateNotifyPrefsRequest defines the request body for notification preferences
type UpdateNotifyPrefsRequest struct {
	NotifyEvents *uint32 `json:"notify_events" validate:"omitempty,max=15"`
	EmailEvents  *uint32 `json:"email_events" validate:"omitempty,max=15"`
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
// RegisteredClaims.ID doubles as the timeline session key.
type JwtCustomClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
