package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"gorm.io/gorm"
)

// ShareResult is returned by Reshare and Unshare. Shares is recounted after the call.
type ShareResult struct {
	PublicationID uint64  `json:"publication_id,omitempty"`
	Outcome       Outcome `json:"-"`
	Shares        int64   `json:"shares"`
}

// Reshare republishes someone else's note on the user's timeline. Sharing the
// same note twice returns the existing reshare.
func (s *Service) Reshare(ctx context.Context, noteID uint64, userID uint) (*ShareResult, error) {
	res := &ShareResult{}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		note, err := noteForEngagement(ctx, tx, noteID)
		if err != nil {
			return err
		}
		if note.AuthorID == userID {
			return ErrForbidden
		}

		pub := &models.Publication{
			NoteID:      noteID,
			PublisherID: userID,
			Kind:        models.PublicationReshare,
			DedupKey:    repositories.ReshareKey(noteID, userID),
		}
		created, err := tx.Publications.CreatePublication(ctx, pub)
		if err != nil {
			return fmt.Errorf("create reshare: %w", err)
		}
		if created {
			res.Outcome = Applied
			res.PublicationID = pub.ID
			if _, err := s.fanOut(ctx, tx, Event{Kind: models.EventShare, PublicationID: pub.ID}); err != nil {
				return err
			}
		} else {
			existing, err := tx.Publications.GetReshare(ctx, noteID, userID)
			if err != nil {
				return fmt.Errorf("get reshare: %w", err)
			}
			res.Outcome = AlreadyApplied
			res.PublicationID = existing.ID
		}

		res.Shares, err = tx.Publications.CountReshares(ctx, noteID, note.AuthorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("reshare", "note_id", noteID, "user_id", userID, "outcome", res.Outcome)
	return res, nil
}

// Unshare removes the user's reshare of a note, if any
func (s *Service) Unshare(ctx context.Context, noteID uint64, userID uint) (*ShareResult, error) {
	res := &ShareResult{Outcome: NotApplied}
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		note, err := tx.Notes.GetNoteByID(ctx, noteID)
		if err != nil {
			return lookupErr("get note", err)
		}

		existing, err := tx.Publications.GetReshare(ctx, noteID, userID)
		switch {
		case err == nil:
			if err := tx.Notifications.DeleteByPublicationIDs(ctx, []uint64{existing.ID}); err != nil {
				return fmt.Errorf("delete reshare notifications: %w", err)
			}
			removed, err := tx.Publications.DeleteReshare(ctx, noteID, userID)
			if err != nil {
				return fmt.Errorf("delete reshare: %w", err)
			}
			if removed {
				res.Outcome = Applied
				res.PublicationID = existing.ID
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("get reshare: %w", err)
		}

		res.Shares, err = tx.Publications.CountReshares(ctx, noteID, note.AuthorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CountShares is the number of reshares of a note, excluding its author
func (s *Service) CountShares(ctx context.Context, noteID uint64) (int64, error) {
	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		return 0, err
	}
	return s.store.Publications.CountReshares(ctx, noteID, note.AuthorID)
}

// Sharers lists who reshared a note, in share order
func (s *Service) Sharers(ctx context.Context, noteID uint64) ([]models.UserCompact, error) {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return nil, err
	}
	ids, err := s.store.Publications.GetResharerIDs(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("get resharers: %w", err)
	}
	return s.compactUsers(ctx, ids), nil
}

// Comment attaches a comment to a note as a new publication and returns it
func (s *Service) Comment(ctx context.Context, noteID uint64, authorID uint, text, assetHandle string) (*models.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" && assetHandle == "" {
		return nil, fmt.Errorf("%w: a comment needs text or an attachment", ErrInvalidInput)
	}

	var comment *models.Comment
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if _, err := noteForEngagement(ctx, tx, noteID); err != nil {
			return err
		}

		pub := &models.Publication{
			NoteID:      noteID,
			PublisherID: authorID,
			Kind:        models.PublicationComment,
		}
		if _, err := tx.Publications.CreatePublication(ctx, pub); err != nil {
			return fmt.Errorf("create comment publication: %w", err)
		}
		comment = &models.Comment{
			PublicationID: pub.ID,
			NoteID:        noteID,
			AuthorID:      authorID,
			Text:          text,
			AssetHandle:   assetHandle,
		}
		if err := tx.Comments.CreateComment(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		_, err := s.fanOut(ctx, tx, Event{Kind: models.EventComment, PublicationID: pub.ID})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("comment created", "note_id", noteID, "publication_id", comment.PublicationID, "author_id", authorID)
	return comment, nil
}

// RemoveComment deletes a comment publication. Only its author may remove it.
func (s *Service) RemoveComment(ctx context.Context, publicationID uint64, userID uint) error {
	return s.store.Transaction(ctx, func(tx *repositories.Store) error {
		pub, err := tx.Publications.GetPublicationByID(ctx, publicationID)
		if err != nil {
			return lookupErr("get publication", err)
		}
		if pub.Kind != models.PublicationComment {
			return ErrNotFound
		}
		if pub.PublisherID != userID {
			return ErrForbidden
		}

		ids := []uint64{publicationID}
		if err := tx.Notifications.DeleteByPublicationIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete comment notifications: %w", err)
		}
		if err := tx.Engagement.DeleteBySubjects(ctx, models.SubjectComment, ids); err != nil {
			return fmt.Errorf("delete comment favorites: %w", err)
		}
		if err := tx.Comments.DeleteComment(ctx, publicationID); err != nil {
			return fmt.Errorf("delete comment: %w", err)
		}
		if err := tx.Publications.DeletePublication(ctx, publicationID); err != nil {
			return fmt.Errorf("delete comment publication: %w", err)
		}
		return nil
	})
}

// Comments lists every comment of a note, oldest first, as seen by viewerID
func (s *Service) Comments(ctx context.Context, viewerID uint, noteID uint64) ([]CommentView, error) {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.GetCommentsByNoteID(ctx, noteID)
	if err != nil {
		return nil, fmt.Errorf("get comments: %w", err)
	}
	return s.commentViews(ctx, viewerID, comments, newUserCache(s))
}

// GetPublication returns a publication by id
func (s *Service) GetPublication(ctx context.Context, publicationID uint64) (*models.Publication, error) {
	pub, err := s.store.Publications.GetPublicationByID(ctx, publicationID)
	if err != nil {
		return nil, lookupErr("get publication", err)
	}
	return pub, nil
}
