package models

import "time"

// NoteKind identifies what kind of thing a note records
type NoteKind string

const (
	NoteKindPost             NoteKind = "post"
	NoteKindSharedFile       NoteKind = "shared_file"
	NoteKindForumPost        NoteKind = "forum_post"
	NoteKindNotice           NoteKind = "notice"
	NoteKindExamAnnouncement NoteKind = "exam_announcement"
)

// ScopeLevel is the hierarchy level a note is grouped under
type ScopeLevel string

const (
	ScopeNone        ScopeLevel = ""
	ScopeInstitution ScopeLevel = "institution"
	ScopeCenter      ScopeLevel = "center"
	ScopeDegree      ScopeLevel = "degree"
	ScopeCourse      ScopeLevel = "course"
)

// Scope is an optional reference into the institution/center/degree/course hierarchy
type Scope struct {
	Level ScopeLevel `json:"level,omitempty" gorm:"column:scope_level;size:20"`
	ID    uint       `json:"id,omitempty" gorm:"column:scope_id"`
}

// IsZero reports whether the scope is unset
func (s Scope) IsZero() bool {
	return s.Level == ScopeNone && s.ID == 0
}

// Note is the durable record of something that happened.
// Kind and TargetRef never change after creation.
type Note struct {
	ID          uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind        NoteKind  `json:"kind" gorm:"size:30;index:idx_note_kind_target"`
	AuthorID    uint      `json:"author_id" gorm:"index"`
	Scope       Scope     `json:"scope" gorm:"embedded"`
	TargetRef   string    `json:"target_ref,omitempty" gorm:"size:120;index:idx_note_kind_target"`
	ContentID   string    `json:"-" gorm:"size:64"` // plain-post content record
	Unavailable bool      `json:"unavailable" gorm:"default:false"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostContent is the mutable content record behind a plain post
type PostContent struct {
	ID          string    `json:"id" gorm:"primaryKey;size:64" bson:"_id"`
	AuthorID    uint      `json:"author_id" gorm:"index" bson:"author_id"`
	Text        string    `json:"text" gorm:"type:text" bson:"text"`
	AssetHandle string    `json:"asset_handle,omitempty" gorm:"size:255" bson:"asset_handle,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// CreatePostRequest defines the request body for a new plain post
type CreatePostRequest struct {
	Text        string     `json:"text" validate:"max=2000"`
	AssetHandle string     `json:"asset_handle,omitempty" validate:"omitempty,max=255"`
	ScopeLevel  ScopeLevel `json:"scope_level,omitempty" validate:"omitempty,oneof=institution center degree course"`
	ScopeID     uint       `json:"scope_id,omitempty"`
}

// PublishNoteRequest is sent by the owning subsystems when one of their resources becomes public
type PublishNoteRequest struct {
	Kind       NoteKind   `json:"kind" validate:"required,oneof=shared_file forum_post notice exam_announcement"`
	TargetRef  string     `json:"target_ref" validate:"required,max=120"`
	ScopeLevel ScopeLevel `json:"scope_level,omitempty" validate:"omitempty,oneof=institution center degree course"`
	ScopeID    uint       `json:"scope_id,omitempty"`
}

// TargetRemovedRequest reports that the resource behind a note was deleted
type TargetRemovedRequest struct {
	Kind      NoteKind `json:"kind" validate:"required"`
	TargetRef string   `json:"target_ref" validate:"required,max=120"`
}
