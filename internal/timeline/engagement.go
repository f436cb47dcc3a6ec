package timeline

import (
	"context"
	"fmt"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
)

// FavoriteResult is returned by Favorite and Unfavorite. Favorites is recounted after the call.
type FavoriteResult struct {
	Outcome   Outcome `json:"-"`
	Favorites int64   `json:"favorites"`
}

// subjectRef is a favorite subject resolved to its note, its author and the
// publication that notifications about it point at
type subjectRef struct {
	note          *models.Note
	authorID      uint
	publicationID uint64
}

func resolveSubject(ctx context.Context, tx *repositories.Store, subject models.Subject) (*subjectRef, error) {
	switch subject.Type {
	case models.SubjectNote:
		note, err := tx.Notes.GetNoteByID(ctx, subject.ID)
		if err != nil {
			return nil, lookupErr("get note", err)
		}
		ref := &subjectRef{note: note, authorID: note.AuthorID}
		if orig, err := tx.Publications.GetOriginal(ctx, note.ID); err == nil {
			ref.publicationID = orig.ID
		}
		return ref, nil
	case models.SubjectComment:
		pub, err := tx.Publications.GetPublicationByID(ctx, subject.ID)
		if err != nil {
			return nil, lookupErr("get publication", err)
		}
		if pub.Kind != models.PublicationComment {
			return nil, ErrNotFound
		}
		note, err := tx.Notes.GetNoteByID(ctx, pub.NoteID)
		if err != nil {
			return nil, lookupErr("get note", err)
		}
		return &subjectRef{note: note, authorID: pub.PublisherID, publicationID: pub.ID}, nil
	}
	return nil, fmt.Errorf("%w: unknown subject type %q", ErrInvalidInput, subject.Type)
}

// Favorite marks a note or comment as a favorite of userID. Favoriting twice
// is AlreadyApplied; authors cannot favorite their own content.
func (s *Service) Favorite(ctx context.Context, subject models.Subject, userID uint) (*FavoriteResult, error) {
	res := &FavoriteResult{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		ref, err := resolveSubject(ctx, tx, subject)
		if err != nil {
			return err
		}
		if ref.note.Unavailable {
			return ErrNoteUnavailable
		}
		if ref.authorID == userID {
			return ErrForbidden
		}

		added, err := tx.Engagement.AddEdge(ctx, models.EdgeFavorite, subject, userID)
		if err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		if added {
			res.Outcome = Applied
			if ref.publicationID != 0 {
				ev := Event{Kind: models.EventFavorite, PublicationID: ref.publicationID, ActorID: userID}
				if _, err := s.fanOut(ctx, tx, ev); err != nil {
					return err
				}
			}
		} else {
			res.Outcome = AlreadyApplied
		}

		res.Favorites, err = tx.Engagement.CountEdges(ctx, models.EdgeFavorite, subject, ref.authorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("favorite", "subject_type", subject.Type, "subject_id", subject.ID, "user_id", userID, "outcome", res.Outcome)
	return res, nil
}

// Unfavorite removes a favorite. It also works on unavailable notes.
func (s *Service) Unfavorite(ctx context.Context, subject models.Subject, userID uint) (*FavoriteResult, error) {
	res := &FavoriteResult{Outcome: NotApplied}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		ref, err := resolveSubject(ctx, tx, subject)
		if err != nil {
			return err
		}

		removed, err := tx.Engagement.RemoveEdge(ctx, models.EdgeFavorite, subject, userID)
		if err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		if removed {
			res.Outcome = Applied
			if ref.publicationID != 0 {
				if err := tx.Notifications.RetractEvent(ctx, models.EventFavorite, userID, ref.publicationID); err != nil {
					return fmt.Errorf("retract favorite notification: %w", err)
				}
			}
		}

		res.Favorites, err = tx.Engagement.CountEdges(ctx, models.EdgeFavorite, subject, ref.authorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CountFavorites is the number of users who favorited a subject, excluding its author
func (s *Service) CountFavorites(ctx context.Context, subject models.Subject) (int64, error) {
	ref, err := resolveSubject(ctx, s.store, subject)
	if err != nil {
		return 0, err
	}
	return s.store.Engagement.CountEdges(ctx, models.EdgeFavorite, subject, ref.authorID)
}

// Favoriters lists who favorited a subject, in favorite order
func (s *Service) Favoriters(ctx context.Context, subject models.Subject) ([]models.UserCompact, error) {
	if _, err := resolveSubject(ctx, s.store, subject); err != nil {
		return nil, err
	}
	ids, err := s.store.Engagement.GetUserIDs(ctx, models.EdgeFavorite, subject)
	if err != nil {
		return nil, fmt.Errorf("get favoriters: %w", err)
	}
	return s.compactUsers(ctx, ids), nil
}
