package timeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/notekind"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
)

// NewNote describes a note to record. Text and AssetHandle apply to plain
// posts only; every other kind carries a TargetRef instead.
type NewNote struct {
	Kind        models.NoteKind
	AuthorID    uint
	TargetRef   string
	Scope       models.Scope
	Text        string
	AssetHandle string
}

// CreateNote records a note and its original publication in one transaction.
// Plain-post content is written first and removed again if the transaction fails.
func (s *Service) CreateNote(ctx context.Context, in NewNote) (*models.Note, *models.Publication, error) {
	if in.AuthorID == 0 {
		return nil, nil, fmt.Errorf("%w: author is required", ErrInvalidInput)
	}
	if err := notekind.Check(in.Kind, in.TargetRef, in.Scope); err != nil {
		return nil, nil, err
	}

	note := &models.Note{
		Kind:      in.Kind,
		AuthorID:  in.AuthorID,
		Scope:     in.Scope,
		TargetRef: in.TargetRef,
	}

	var content *models.PostContent
	if in.Kind == models.NoteKindPost {
		text := strings.TrimSpace(in.Text)
		if text == "" && in.AssetHandle == "" {
			return nil, nil, fmt.Errorf("%w: a post needs text or an attachment", ErrInvalidInput)
		}
		content = &models.PostContent{AuthorID: in.AuthorID, Text: text, AssetHandle: in.AssetHandle}
		if err := s.contents.CreateContent(ctx, content); err != nil {
			return nil, nil, fmt.Errorf("store post content: %w", err)
		}
		note.ContentID = content.ID
	}

	var pub *models.Publication
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		if err := tx.Notes.CreateNote(ctx, note); err != nil {
			return fmt.Errorf("create note: %w", err)
		}
		var err error
		if pub, err = publishOriginal(ctx, tx, note); err != nil {
			return err
		}
		if content != nil {
			if _, err := s.fanOut(ctx, tx, Event{Kind: models.EventMention, PublicationID: pub.ID}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if content != nil {
			if delErr := s.contents.DeleteContent(ctx, content.ID); delErr != nil {
				s.log.Warn("orphaned post content", "content_id", content.ID, "error", delErr)
			}
		}
		return nil, nil, err
	}

	s.log.Info("note created", "note_id", note.ID, "kind", note.Kind, "author_id", note.AuthorID, "publication_id", pub.ID)
	return note, pub, nil
}

// Post is CreateNote for a plain post
func (s *Service) Post(ctx context.Context, authorID uint, text, assetHandle string, scope models.Scope) (*models.Note, *models.Publication, error) {
	return s.CreateNote(ctx, NewNote{
		Kind:        models.NoteKindPost,
		AuthorID:    authorID,
		Scope:       scope,
		Text:        text,
		AssetHandle: assetHandle,
	})
}

// PublishOriginal makes sure a note has its original publication. Retrying it
// returns the existing publication.
func (s *Service) PublishOriginal(ctx context.Context, noteID uint64) (*models.Publication, error) {
	var pub *models.Publication
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		note, err := tx.Notes.GetNoteByID(ctx, noteID)
		if err != nil {
			return lookupErr("get note", err)
		}
		pub, err = publishOriginal(ctx, tx, note)
		return err
	})
	return pub, err
}

func publishOriginal(ctx context.Context, tx *repositories.Store, note *models.Note) (*models.Publication, error) {
	pub := &models.Publication{
		NoteID:      note.ID,
		PublisherID: note.AuthorID,
		Kind:        models.PublicationOriginal,
		DedupKey:    repositories.OriginalKey(note.ID),
	}
	created, err := tx.Publications.CreatePublication(ctx, pub)
	if err != nil {
		return nil, fmt.Errorf("create original publication: %w", err)
	}
	if !created {
		existing, err := tx.Publications.GetOriginal(ctx, note.ID)
		if err != nil {
			return nil, fmt.Errorf("get original publication: %w", err)
		}
		return existing, nil
	}
	return pub, nil
}

// GetNote returns a note by id
func (s *Service) GetNote(ctx context.Context, noteID uint64) (*models.Note, error) {
	note, err := s.store.Notes.GetNoteByID(ctx, noteID)
	if err != nil {
		return nil, lookupErr("get note", err)
	}
	return note, nil
}

// EditPost replaces the text and attachment of a plain post. Only the author may edit.
func (s *Service) EditPost(ctx context.Context, noteID uint64, userID uint, text, assetHandle string) error {
	text = strings.TrimSpace(text)
	if text == "" && assetHandle == "" {
		return fmt.Errorf("%w: a post needs text or an attachment", ErrInvalidInput)
	}
	note, err := s.GetNote(ctx, noteID)
	if err != nil {
		return err
	}
	if note.Kind != models.NoteKindPost || note.ContentID == "" {
		return fmt.Errorf("%w: only plain posts can be edited", ErrInvalidKind)
	}
	if note.AuthorID != userID {
		return ErrForbidden
	}
	if err := s.contents.UpdateContent(ctx, note.ContentID, text, assetHandle); err != nil {
		return lookupErr("update post content", err)
	}
	return nil
}

// MarkUnavailable flags a note whose target vanished. Repeating it is a no-op.
func (s *Service) MarkUnavailable(ctx context.Context, noteID uint64) error {
	if _, err := s.GetNote(ctx, noteID); err != nil {
		return err
	}
	n, err := s.store.Notes.MarkUnavailable(ctx, []uint64{noteID})
	if err != nil {
		return fmt.Errorf("mark note unavailable: %w", err)
	}
	if n > 0 {
		s.log.Info("note marked unavailable", "note_id", noteID)
	}
	return nil
}

// TargetRemoved is called by the owning subsystem after it deleted a resource.
// It returns how many notes became unavailable.
func (s *Service) TargetRemoved(ctx context.Context, kind models.NoteKind, targetRef string) (int64, error) {
	v, err := notekind.Lookup(kind)
	if err != nil {
		return 0, err
	}
	if targetRef == "" {
		return 0, fmt.Errorf("%w: target reference is required", ErrInvalidInput)
	}
	if v.OnTargetRemoved() != notekind.MarkUnavailable {
		return 0, nil
	}

	notes, err := s.store.Notes.GetNotesByTarget(ctx, kind, targetRef)
	if err != nil {
		return 0, fmt.Errorf("get notes by target: %w", err)
	}
	ids := make([]uint64, 0, len(notes))
	for _, n := range notes {
		ids = append(ids, n.ID)
	}
	changed, err := s.store.Notes.MarkUnavailable(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark notes unavailable: %w", err)
	}
	s.log.Info("target removed", "kind", kind, "target_ref", targetRef, "notes", changed)
	return changed, nil
}

// RemoveNoteCompletely deletes a note with every publication, comment,
// favorite, notification and delivery mark that refers to it.
func (s *Service) RemoveNoteCompletely(ctx context.Context, noteID uint64, userID uint) error {
	var contentID string
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		note, err := tx.Notes.GetNoteByID(ctx, noteID)
		if err != nil {
			return lookupErr("get note", err)
		}
		if note.AuthorID != userID {
			return ErrForbidden
		}
		contentID = note.ContentID

		pubIDs, err := tx.Publications.GetPublicationIDsByNote(ctx, noteID, "")
		if err != nil {
			return fmt.Errorf("get publications: %w", err)
		}
		commentIDs, err := tx.Publications.GetPublicationIDsByNote(ctx, noteID, models.PublicationComment)
		if err != nil {
			return fmt.Errorf("get comment publications: %w", err)
		}

		if err := tx.Notifications.DeleteByPublicationIDs(ctx, pubIDs); err != nil {
			return fmt.Errorf("delete notifications: %w", err)
		}
		if err := tx.Engagement.DeleteBySubjects(ctx, models.SubjectComment, commentIDs); err != nil {
			return fmt.Errorf("delete comment favorites: %w", err)
		}
		if err := tx.Engagement.DeleteBySubjects(ctx, models.SubjectNote, []uint64{noteID}); err != nil {
			return fmt.Errorf("delete note favorites: %w", err)
		}
		if err := tx.Comments.DeleteByNoteID(ctx, noteID); err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if err := tx.Publications.DeleteByNote(ctx, noteID); err != nil {
			return fmt.Errorf("delete publications: %w", err)
		}
		if err := tx.Windows.DeleteDeliveriesForNote(ctx, noteID); err != nil {
			return fmt.Errorf("delete deliveries: %w", err)
		}
		if err := tx.Notes.DeleteNote(ctx, noteID); err != nil {
			return fmt.Errorf("delete note: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if contentID != "" {
		if err := s.contents.DeleteContent(ctx, contentID); err != nil && !errors.Is(err, repositories.ErrContentNotFound) {
			s.log.Warn("orphaned post content", "content_id", contentID, "error", err)
		}
	}
	s.log.Info("note removed", "note_id", noteID, "user_id", userID)
	return nil
}

func noteForEngagement(ctx context.Context, tx *repositories.Store, noteID uint64) (*models.Note, error) {
	note, err := tx.Notes.GetNoteByID(ctx, noteID)
	if err != nil {
		return nil, lookupErr("get note", err)
	}
	if note.Unavailable {
		return nil, ErrNoteUnavailable
	}
	return note, nil
}
