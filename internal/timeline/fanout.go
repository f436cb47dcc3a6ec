package timeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/timeline/internal/mention"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"gorm.io/gorm"
)

// Event names a publication whose notifications should exist
type Event struct {
	Kind          models.EventKind
	PublicationID uint64
	// ActorID defaults to the publisher. Favorites must set it.
	ActorID uint
}

type recipient struct {
	userID uint
	kind   models.EventKind
}

// FanOut creates the notifications an event implies. Recipients are derived
// from stored state, so running it again creates nothing new. It returns the
// number of notifications created.
func (s *Service) FanOut(ctx context.Context, ev Event) (int, error) {
	var created int
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		var err error
		created, err = s.fanOut(ctx, tx, ev)
		return err
	})
	return created, err
}

func (s *Service) fanOut(ctx context.Context, tx *repositories.Store, ev Event) (int, error) {
	if ev.Kind.Bit() == 0 {
		return 0, fmt.Errorf("%w: unknown event %q", ErrInvalidInput, ev.Kind)
	}
	pub, err := tx.Publications.GetPublicationByID(ctx, ev.PublicationID)
	if err != nil {
		return 0, lookupErr("get publication", err)
	}
	note, err := tx.Notes.GetNoteByID(ctx, pub.NoteID)
	if err != nil {
		return 0, lookupErr("get note", err)
	}

	actor := ev.ActorID
	if actor == 0 {
		if ev.Kind == models.EventFavorite {
			return 0, fmt.Errorf("%w: favorite events need an actor", ErrInvalidInput)
		}
		actor = pub.PublisherID
	}

	targets, err := s.recipients(ctx, tx, ev.Kind, pub, note)
	if err != nil {
		return 0, err
	}

	done := map[uint]bool{actor: true}
	created := 0
	for _, t := range targets {
		if done[t.userID] {
			continue
		}
		done[t.userID] = true

		user, err := s.directory.GetUser(ctx, t.userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				s.log.Warn("notification recipient lookup failed", "user_id", t.userID, "error", err)
			} else {
				s.log.Debug("notification recipient skipped", "user_id", t.userID)
			}
			continue
		}
		bit := t.kind.Bit()
		if user.NotifyEvents&bit == 0 {
			continue
		}

		n := &models.Notification{
			Type:          t.kind,
			ActorID:       actor,
			RecipientID:   user.ID,
			PublicationID: pub.ID,
			Email:         user.EmailEvents&bit != 0,
		}
		// favorites of a note all land on its original publication, so the
		// latest favoriter takes the row over
		create := tx.Notifications.CreateNotification
		if t.kind == models.EventFavorite {
			create = tx.Notifications.RefreshNotification
		}
		inserted, err := create(ctx, n)
		if err != nil {
			return created, fmt.Errorf("create notification: %w", err)
		}
		if inserted {
			created++
		}
	}

	if created > 0 {
		s.log.Debug("notifications created", "event", ev.Kind, "publication_id", pub.ID, "count", created)
	}
	return created, nil
}

// recipients lists who an event concerns, direct recipient first, then mentions
func (s *Service) recipients(ctx context.Context, tx *repositories.Store, kind models.EventKind, pub *models.Publication, note *models.Note) ([]recipient, error) {
	var out []recipient

	switch kind {
	case models.EventComment, models.EventShare:
		out = append(out, recipient{userID: note.AuthorID, kind: kind})
	case models.EventFavorite:
		if pub.Kind == models.PublicationComment {
			out = append(out, recipient{userID: pub.PublisherID, kind: kind})
		} else {
			out = append(out, recipient{userID: note.AuthorID, kind: kind})
		}
	}

	if kind == models.EventComment || kind == models.EventMention {
		text, err := s.publicationText(ctx, tx, pub, note)
		if err != nil {
			return nil, err
		}
		for _, handle := range mention.ScanMarkup(text, s.cfg.Nicknames) {
			id, err := s.directory.ResolveHandle(ctx, handle)
			if err != nil {
				s.log.Debug("mention not resolved", "handle", handle)
				continue
			}
			out = append(out, recipient{userID: id, kind: models.EventMention})
		}
	}
	return out, nil
}

// publicationText is the text a publication adds: the comment body or the
// body of an original plain post
func (s *Service) publicationText(ctx context.Context, tx *repositories.Store, pub *models.Publication, note *models.Note) (string, error) {
	switch {
	case pub.Kind == models.PublicationComment:
		c, err := tx.Comments.GetCommentByPublicationID(ctx, pub.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return "", nil
			}
			return "", fmt.Errorf("get comment: %w", err)
		}
		return c.Text, nil
	case pub.Kind == models.PublicationOriginal && note.ContentID != "":
		content, err := s.contents.GetContent(ctx, note.ContentID)
		if err != nil {
			if errors.Is(err, repositories.ErrContentNotFound) {
				return "", nil
			}
			return "", fmt.Errorf("get post content: %w", err)
		}
		return content.Text, nil
	}
	return "", nil
}
