package models

import "time"

// Comment is the payload of a comment publication
type Comment struct {
	PublicationID uint64    `json:"publication_id" gorm:"primaryKey;autoIncrement:false"`
	NoteID        uint64    `json:"note_id" gorm:"index"`
	AuthorID      uint      `json:"author_id" gorm:"index"`
	Text          string    `json:"text" gorm:"type:text"`
	AssetHandle   string    `json:"asset_handle,omitempty" gorm:"size:255"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateCommentRequest defines the request body for commenting a note
type CreateCommentRequest struct {
	Text        string `json:"text" validate:"max=1000"`
	AssetHandle string `json:"asset_handle,omitempty" validate:"omitempty,max=255"`
}
