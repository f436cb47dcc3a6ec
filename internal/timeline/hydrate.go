package timeline

import (
	"context"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/notekind"
)

// Entry is one rendered feed item: a publication together with its note
type Entry struct {
	PublicationID     uint64                 `json:"publication_id"`
	PublicationKind   models.PublicationKind `json:"publication_kind"`
	PublishedAt       time.Time              `json:"published_at"`
	Publisher         models.UserCompact     `json:"publisher"`
	Note              models.Note            `json:"note"`
	Author            models.UserCompact     `json:"author"`
	Summary           string                 `json:"summary"`
	Text              string                 `json:"text,omitempty"`
	AssetHandle       string                 `json:"asset_handle,omitempty"`
	ScopeName         string                 `json:"scope_name,omitempty"`
	Target            notekind.Target        `json:"target"`
	Counters          models.Counters        `json:"counters"`
	SharedByViewer    bool                   `json:"shared_by_viewer"`
	FavoritedByViewer bool                   `json:"favorited_by_viewer"`
	Comments          []CommentView          `json:"comments"`
}

// CommentView is a comment with its author and favorite state
type CommentView struct {
	models.Comment
	Author            models.UserCompact `json:"author"`
	Favorites         int64              `json:"favorites"`
	FavoritedByViewer bool               `json:"favorited_by_viewer"`
}

// userCache memoizes directory lookups for one render
type userCache struct {
	s     *Service
	users map[uint]models.UserCompact
}

func newUserCache(s *Service) *userCache {
	return &userCache{s: s, users: make(map[uint]models.UserCompact)}
}

// get falls back to a bare id for users the directory no longer knows
func (c *userCache) get(ctx context.Context, id uint) models.UserCompact {
	if u, ok := c.users[id]; ok {
		return u
	}
	compact := models.UserCompact{ID: id}
	if u, err := c.s.directory.GetUser(ctx, id); err == nil {
		compact = u.ToCompact()
	}
	c.users[id] = compact
	return compact
}

func (s *Service) compactUsers(ctx context.Context, ids []uint) []models.UserCompact {
	cache := newUserCache(s)
	out := make([]models.UserCompact, 0, len(ids))
	for _, id := range ids {
		out = append(out, cache.get(ctx, id))
	}
	return out
}

func (s *Service) scopeName(ctx context.Context, scope models.Scope) string {
	if s.scopes == nil || scope.IsZero() {
		return ""
	}
	name, err := s.scopes.ResolveScope(ctx, scope)
	if err != nil {
		s.log.Debug("scope not resolved", "level", scope.Level, "id", scope.ID, "error", err)
		return ""
	}
	return name
}

// hydrate renders publications for viewerID, keeping their order. Publications
// whose note disappeared meanwhile are dropped.
func (s *Service) hydrate(ctx context.Context, viewerID uint, pubs []models.Publication) ([]Entry, error) {
	if len(pubs) == 0 {
		return []Entry{}, nil
	}

	noteIDs := make([]uint64, 0, len(pubs))
	for _, p := range pubs {
		noteIDs = append(noteIDs, p.NoteID)
	}
	notes, err := s.store.Notes.GetNotesByIDs(ctx, noteIDs)
	if err != nil {
		return nil, err
	}

	var contentIDs []string
	for _, n := range notes {
		if n.ContentID != "" && !n.Unavailable {
			contentIDs = append(contentIDs, n.ContentID)
		}
	}
	contents, err := s.contents.GetContents(ctx, contentIDs)
	if err != nil {
		return nil, err
	}
	shared, err := s.store.Publications.GetResharedNoteIDs(ctx, viewerID, noteIDs)
	if err != nil {
		return nil, err
	}
	favorited, err := s.store.Engagement.GetEdgeSubjectIDs(ctx, models.EdgeFavorite, models.SubjectNote, viewerID, noteIDs)
	if err != nil {
		return nil, err
	}

	users := newUserCache(s)
	entries := make([]Entry, 0, len(pubs))
	for _, p := range pubs {
		note, ok := notes[p.NoteID]
		if !ok {
			continue
		}
		e := Entry{
			PublicationID:     p.ID,
			PublicationKind:   p.Kind,
			PublishedAt:       p.CreatedAt,
			Publisher:         users.get(ctx, p.PublisherID),
			Note:              *note,
			Author:            users.get(ctx, note.AuthorID),
			ScopeName:         s.scopeName(ctx, note.Scope),
			Target:            notekind.ResolveTarget(note),
			SharedByViewer:    shared[note.ID],
			FavoritedByViewer: favorited[note.ID],
		}
		if c, ok := contents[note.ContentID]; ok {
			e.Text = c.Text
			e.AssetHandle = c.AssetHandle
		}
		e.Summary = notekind.Summarize(note, e.Text, e.ScopeName)

		if e.Counters, err = s.counters(ctx, note); err != nil {
			return nil, err
		}
		latest, err := s.store.Comments.GetLatestComments(ctx, note.ID, s.cfg.CommentsPreview)
		if err != nil {
			return nil, err
		}
		if e.Comments, err = s.commentViews(ctx, viewerID, latest, users); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) counters(ctx context.Context, note *models.Note) (models.Counters, error) {
	var c models.Counters
	var err error
	if c.Shares, err = s.store.Publications.CountReshares(ctx, note.ID, note.AuthorID); err != nil {
		return c, err
	}
	subject := models.Subject{Type: models.SubjectNote, ID: note.ID}
	if c.Favorites, err = s.store.Engagement.CountEdges(ctx, models.EdgeFavorite, subject, note.AuthorID); err != nil {
		return c, err
	}
	c.Comments, err = s.store.Comments.CountByNoteID(ctx, note.ID)
	return c, err
}

func (s *Service) commentViews(ctx context.Context, viewerID uint, comments []models.Comment, users *userCache) ([]CommentView, error) {
	views := make([]CommentView, 0, len(comments))
	if len(comments) == 0 {
		return views, nil
	}
	ids := make([]uint64, 0, len(comments))
	for _, c := range comments {
		ids = append(ids, c.PublicationID)
	}
	favorited, err := s.store.Engagement.GetEdgeSubjectIDs(ctx, models.EdgeFavorite, models.SubjectComment, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		subject := models.Subject{Type: models.SubjectComment, ID: c.PublicationID}
		n, err := s.store.Engagement.CountEdges(ctx, models.EdgeFavorite, subject, c.AuthorID)
		if err != nil {
			return nil, err
		}
		views = append(views, CommentView{
			Comment:           c,
			Author:            users.get(ctx, c.AuthorID),
			Favorites:         n,
			FavoritedByViewer: favorited[c.PublicationID],
		})
	}
	return views, nil
}

// NoteEntry renders a single note through its original publication
func (s *Service) NoteEntry(ctx context.Context, viewerID uint, noteID uint64) (*Entry, error) {
	pub, err := s.store.Publications.GetOriginal(ctx, noteID)
	if err != nil {
		return nil, lookupErr("get original publication", err)
	}
	entries, err := s.hydrate(ctx, viewerID, []models.Publication{*pub})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return &entries[0], nil
}
