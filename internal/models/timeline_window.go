package models

import "time"

// FeedFilter selects whose publications a timeline shows
type FeedFilter string

const (
	FilterAll      FeedFilter = "all"
	FilterFollowed FeedFilter = "followed"
)

// TimelineDelivery marks a note as already delivered to a viewing session
type TimelineDelivery struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"size:64;uniqueIndex:idx_session_note"`
	NoteID    uint64 `gorm:"uniqueIndex:idx_session_note;index"`
	CreatedAt time.Time
}

// TimelineCursor holds the publication bounds a session has seen
type TimelineCursor struct {
	SessionID string     `gorm:"primaryKey;size:64"`
	ViewerID  uint       `gorm:"index"`
	Filter    FeedFilter `gorm:"size:20"`
	FirstSeen uint64
	LastSeen  uint64
	UpdatedAt time.Time
}
