package models

import "time"

// PublicationKind says how a note was made visible
type PublicationKind string

const (
	PublicationOriginal PublicationKind = "original"
	PublicationReshare  PublicationKind = "reshare"
	PublicationComment  PublicationKind = "comment"
)

// Publication is one ledger entry: publisher made note visible as kind.
// The auto-increment ID is the only ordering key of the feed.
type Publication struct {
	ID          uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	NoteID      uint64          `json:"note_id" gorm:"index"`
	PublisherID uint            `json:"publisher_id" gorm:"index"`
	Kind        PublicationKind `json:"kind" gorm:"size:20;index"`
	// DedupKey is unique when set: one original per note, one reshare per (note, user).
	DedupKey  *string   `json:"-" gorm:"size:64;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
}
