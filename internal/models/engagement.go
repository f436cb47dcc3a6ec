package models

import "time"

// EdgeKind discriminates engagement edges
type EdgeKind string

const EdgeFavorite EdgeKind = "favorite"

// SubjectType says whether an edge points at a note or at a comment publication
type SubjectType string

const (
	SubjectNote    SubjectType = "note"
	SubjectComment SubjectType = "comment"
)

// Subject is what a favorite applies to
type Subject struct {
	Type SubjectType `json:"type"`
	ID   uint64      `json:"id"`
}

// EngagementEdge records that a user favorited a subject
type EngagementEdge struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	Kind        EdgeKind    `json:"kind" gorm:"size:20;uniqueIndex:idx_edge_subject_user"`
	SubjectType SubjectType `json:"subject_type" gorm:"size:20;uniqueIndex:idx_edge_subject_user;index:idx_edge_subject"`
	SubjectID   uint64      `json:"subject_id" gorm:"uniqueIndex:idx_edge_subject_user;index:idx_edge_subject"`
	UserID      uint        `json:"user_id" gorm:"uniqueIndex:idx_edge_subject_user"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Counters are the engagement numbers shown next to a note or comment
type Counters struct {
	Shares    int64 `json:"shares"`
	Favorites int64 `json:"favorites"`
	Comments  int64 `json:"comments"`
}
