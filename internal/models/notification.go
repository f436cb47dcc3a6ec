package models

import "time"

// EventKind is the reason a notification was created
type EventKind string

const (
	EventComment  EventKind = "timeline_comment"
	EventFavorite EventKind = "timeline_favorite"
	EventShare    EventKind = "timeline_share"
	EventMention  EventKind = "timeline_mention"
)

// Bit returns the preference bit of an event kind
func (k EventKind) Bit() uint32 {
	switch k {
	case EventComment:
		return 1 << 0
	case EventFavorite:
		return 1 << 1
	case EventShare:
		return 1 << 2
	case EventMention:
		return 1 << 3
	}
	return 0
}

// AllEvents has every timeline event bit set
const AllEvents uint32 = 1<<4 - 1

// Notification tells a recipient that something happened to a publication.
// There is at most one per (recipient, publication).
type Notification struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	Type          EventKind `json:"type" gorm:"size:30;index"`
	ActorID       uint      `json:"actor_id" gorm:"index"`
	RecipientID   uint      `json:"recipient_id" gorm:"index;uniqueIndex:idx_recipient_publication"`
	PublicationID uint64    `json:"publication_id" gorm:"index;uniqueIndex:idx_recipient_publication"`
	Email         bool      `json:"email" gorm:"default:false"`
	Seen          bool      `json:"seen" gorm:"default:false;index"`
	Removed       bool      `json:"removed" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at" gorm:"index"`
}
