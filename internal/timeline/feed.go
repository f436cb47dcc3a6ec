package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"gorm.io/gorm"
)

// Page is one batch of feed entries plus the window bounds after it
type Page struct {
	SessionID string  `json:"session_id"`
	Entries   []Entry `json:"entries"`
	FirstSeen uint64  `json:"first_seen"`
	LastSeen  uint64  `json:"last_seen"`
}

// ParseFilter maps a query value to a feed filter; empty means all
func ParseFilter(v string) (models.FeedFilter, error) {
	switch models.FeedFilter(v) {
	case "", models.FilterAll:
		return models.FilterAll, nil
	case models.FilterFollowed:
		return models.FilterFollowed, nil
	}
	return "", fmt.Errorf("%w: unknown feed filter %q", ErrInvalidInput, v)
}

// FreshLoad resets the session window and returns the newest notes, each once,
// through its most recent publication.
func (s *Service) FreshLoad(ctx context.Context, viewerID uint, sessionID string, filter models.FeedFilter) (*Page, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session is required", ErrInvalidInput)
	}
	filter, err := ParseFilter(string(filter))
	if err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx *repositories.Store) error {
		cursor, err := tx.Windows.GetCursor(ctx, sessionID)
		switch {
		case err == nil && cursor.ViewerID != viewerID:
			return ErrForbidden
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("get cursor: %w", err)
		}
		if err := tx.Windows.ResetWindow(ctx, sessionID, viewerID, filter); err != nil {
			return fmt.Errorf("reset window: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishers, err := s.publishers(ctx, viewerID, filter)
	if err != nil {
		return nil, err
	}
	pubs, err := s.load(ctx, sessionID, repositories.RangeQuery{
		Publishers: publishers,
		Limit:      s.cfg.RecentBatch,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{SessionID: sessionID}
	if len(pubs) > 0 {
		page.FirstSeen, page.LastSeen = bounds(pubs)
		if err := s.store.Windows.SetBounds(ctx, sessionID, page.FirstSeen, page.LastSeen); err != nil {
			return nil, fmt.Errorf("set window bounds: %w", err)
		}
	}
	if page.Entries, err = s.hydrate(ctx, viewerID, pubs); err != nil {
		return nil, err
	}
	s.log.Debug("fresh load", "session_id", sessionID, "viewer_id", viewerID, "filter", filter, "entries", len(page.Entries))
	return page, nil
}

// PollNew returns notes published after the window's last-seen bound that the
// session has not been shown yet.
func (s *Service) PollNew(ctx context.Context, viewerID uint, sessionID string) (*Page, error) {
	cursor, err := s.cursor(ctx, viewerID, sessionID)
	if err != nil {
		return nil, err
	}
	publishers, err := s.publishers(ctx, viewerID, cursor.Filter)
	if err != nil {
		return nil, err
	}
	pubs, err := s.load(ctx, sessionID, repositories.RangeQuery{
		Publishers: publishers,
		After:      cursor.LastSeen,
		Limit:      s.cfg.NewBatch,
	})
	if err != nil {
		return nil, err
	}

	page := &Page{SessionID: sessionID, FirstSeen: cursor.FirstSeen, LastSeen: cursor.LastSeen}
	if len(pubs) > 0 {
		first, last := bounds(pubs)
		if err := s.store.Windows.AdvanceLastSeen(ctx, sessionID, last); err != nil {
			return nil, fmt.Errorf("advance last seen: %w", err)
		}
		// a window that started empty gets its lower bound here
		if err := s.store.Windows.LowerFirstSeen(ctx, sessionID, first); err != nil {
			return nil, fmt.Errorf("lower first seen: %w", err)
		}
		page.LastSeen = max(page.LastSeen, last)
		if page.FirstSeen == 0 {
			page.FirstSeen = first
		}
	}
	if page.Entries, err = s.hydrate(ctx, viewerID, pubs); err != nil {
		return nil, err
	}
	return page, nil
}

// PollOld returns the next batch of notes published before the window's
// first-seen bound that the session has not been shown yet.
func (s *Service) PollOld(ctx context.Context, viewerID uint, sessionID string) (*Page, error) {
	cursor, err := s.cursor(ctx, viewerID, sessionID)
	if err != nil {
		return nil, err
	}
	page := &Page{SessionID: sessionID, FirstSeen: cursor.FirstSeen, LastSeen: cursor.LastSeen, Entries: []Entry{}}
	if cursor.FirstSeen == 0 {
		// nothing was ever shown, so nothing is older
		return page, nil
	}

	publishers, err := s.publishers(ctx, viewerID, cursor.Filter)
	if err != nil {
		return nil, err
	}
	pubs, err := s.load(ctx, sessionID, repositories.RangeQuery{
		Publishers: publishers,
		Before:     cursor.FirstSeen,
		Limit:      s.cfg.OldBatch,
	})
	if err != nil {
		return nil, err
	}

	if len(pubs) > 0 {
		first, _ := bounds(pubs)
		if err := s.store.Windows.LowerFirstSeen(ctx, sessionID, first); err != nil {
			return nil, fmt.Errorf("lower first seen: %w", err)
		}
		page.FirstSeen = min(page.FirstSeen, first)
	}
	if page.Entries, err = s.hydrate(ctx, viewerID, pubs); err != nil {
		return nil, err
	}
	return page, nil
}

// EndSession drops a session's window
func (s *Service) EndSession(ctx context.Context, viewerID uint, sessionID string) error {
	if _, err := s.cursor(ctx, viewerID, sessionID); err != nil {
		return err
	}
	return s.store.Windows.DeleteWindow(ctx, sessionID)
}

// load picks the newest publication per note in range, skipping notes the
// session already has, and marks the chosen notes delivered
func (s *Service) load(ctx context.Context, sessionID string, q repositories.RangeQuery) ([]models.Publication, error) {
	q.LatestPerNote = true
	q.ExcludeSession = sessionID
	pubs, err := s.store.Publications.RangeQuery(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("range query: %w", err)
	}
	if len(pubs) == 0 {
		return pubs, nil
	}

	noteIDs := make([]uint64, 0, len(pubs))
	for _, p := range pubs {
		noteIDs = append(noteIDs, p.NoteID)
	}
	if err := s.store.Windows.MarkDelivered(ctx, sessionID, noteIDs); err != nil {
		return nil, fmt.Errorf("mark delivered: %w", err)
	}
	return pubs, nil
}

func (s *Service) cursor(ctx context.Context, viewerID uint, sessionID string) (*models.TimelineCursor, error) {
	if sessionID == "" {
		return nil, ErrNoWindow
	}
	cursor, err := s.store.Windows.GetCursor(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoWindow
		}
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	if cursor.ViewerID != viewerID {
		return nil, ErrForbidden
	}
	return cursor, nil
}

// publishers returns nil for the global feed, otherwise the viewer and everyone they follow
func (s *Service) publishers(ctx context.Context, viewerID uint, filter models.FeedFilter) ([]uint, error) {
	if filter != models.FilterFollowed {
		return nil, nil
	}
	ids, err := s.store.Follows.GetFollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("get following: %w", err)
	}
	return append(ids, viewerID), nil
}

// bounds assumes pubs is non-empty
func bounds(pubs []models.Publication) (first, last uint64) {
	first, last = pubs[0].ID, pubs[0].ID
	for _, p := range pubs[1:] {
		first = min(first, p.ID)
		last = max(last, p.ID)
	}
	return first, last
}
