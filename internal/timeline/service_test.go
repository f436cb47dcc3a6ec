package timeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/anonto42/nano-midea/timeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, tweak ...func(*Config)) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.TestDB(t)
	cfg := DefaultConfig()
	for _, f := range tweak {
		f(&cfg)
	}
	s := NewService(
		repositories.NewStore(db),
		repositories.NewPostgresPostContentRepository(db),
		repositories.NewPostgresUserRepository(db),
		nil,
		cfg,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return s, db
}

func mustPost(t *testing.T, s *Service, author uint, text string) *models.Note {
	t.Helper()
	note, _, err := s.Post(context.Background(), author, text, "", models.Scope{})
	require.NoError(t, err)
	return note
}

func countRows(t *testing.T, db *gorm.DB, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func TestCreateNoteValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()
	course := models.Scope{Level: models.ScopeCourse, ID: 3}

	cases := []struct {
		name string
		in   NewNote
		want error
	}{
		{"empty post", NewNote{Kind: models.NoteKindPost, AuthorID: 1, Text: "   "}, ErrInvalidInput},
		{"post with target", NewNote{Kind: models.NoteKindPost, AuthorID: 1, Text: "x", TargetRef: "f1"}, ErrInvalidKind},
		{"file without scope", NewNote{Kind: models.NoteKindSharedFile, AuthorID: 1, TargetRef: "f1"}, ErrInvalidKind},
		{"exam outside course", NewNote{Kind: models.NoteKindExamAnnouncement, AuthorID: 1, TargetRef: "e1",
			Scope: models.Scope{Level: models.ScopeDegree, ID: 2}}, ErrInvalidKind},
		{"unknown kind", NewNote{Kind: "poll", AuthorID: 1, TargetRef: "p"}, ErrInvalidKind},
		{"no author", NewNote{Kind: models.NoteKindPost, Text: "x"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := s.CreateNote(ctx, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	note, pub, err := s.CreateNote(ctx, NewNote{
		Kind: models.NoteKindExamAnnouncement, AuthorID: 1, TargetRef: "exam-9", Scope: course,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PublicationOriginal, pub.Kind)
	assert.Equal(t, note.ID, pub.NoteID)
	assert.False(t, note.Unavailable)
}

func TestOriginalPublicationIsUnique(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")

	note, pub, err := s.Post(ctx, alice.ID, "hello", "", models.Scope{})
	require.NoError(t, err)

	again, err := s.PublishOriginal(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, pub.ID, again.ID)
	assert.EqualValues(t, 1, countRows(t, db, &models.Publication{}, "note_id = ? AND kind = ?", note.ID, models.PublicationOriginal))

	_, err = s.PublishOriginal(ctx, note.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEditPost(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	note := mustPost(t, s, alice.ID, "first")

	assert.ErrorIs(t, s.EditPost(ctx, note.ID, bob.ID, "mine now", ""), ErrForbidden)
	assert.ErrorIs(t, s.EditPost(ctx, note.ID, alice.ID, "", ""), ErrInvalidInput)
	require.NoError(t, s.EditPost(ctx, note.ID, alice.ID, "second", "asset-1"))

	entry, err := s.NoteEntry(ctx, bob.ID, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "second", entry.Text)
	assert.Equal(t, "asset-1", entry.AssetHandle)
	assert.Equal(t, "second", entry.Summary)
}

func TestReshareIdempotence(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	note := mustPost(t, s, alice.ID, "hello")

	reshares := func() int64 {
		return countRows(t, db, &models.Publication{}, "note_id = ? AND kind = ?", note.ID, models.PublicationReshare)
	}

	first, err := s.Reshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, first.Outcome)
	assert.EqualValues(t, 1, first.Shares)

	second, err := s.Reshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyApplied, second.Outcome)
	assert.Equal(t, first.PublicationID, second.PublicationID)
	assert.EqualValues(t, 1, reshares())

	undo, err := s.Unshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, undo.Outcome)
	assert.EqualValues(t, 0, undo.Shares)

	undo, err = s.Unshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, NotApplied, undo.Outcome)
	assert.EqualValues(t, 0, reshares())

	redo, err := s.Reshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, redo.Outcome)
	assert.Greater(t, redo.PublicationID, first.PublicationID)

	_, err = s.Reshare(ctx, note.ID, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = s.Reshare(ctx, note.ID+100, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	sharers, err := s.Sharers(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, sharers, 1)
	assert.Equal(t, "bob", sharers[0].Nickname)
}

func TestFavoriteCounters(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	note := mustPost(t, s, alice.ID, "hello")
	subject := models.Subject{Type: models.SubjectNote, ID: note.ID}

	_, err := s.Favorite(ctx, subject, alice.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	res, err := s.Favorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Outcome)
	assert.EqualValues(t, 1, res.Favorites)

	res, err = s.Favorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, AlreadyApplied, res.Outcome)
	assert.EqualValues(t, 1, res.Favorites)

	res, err = s.Favorite(ctx, subject, carol.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Favorites)

	res, err = s.Unfavorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Outcome)
	assert.EqualValues(t, 1, res.Favorites)

	res, err = s.Unfavorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, NotApplied, res.Outcome)

	n, err := s.CountFavorites(ctx, subject)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	who, err := s.Favoriters(ctx, subject)
	require.NoError(t, err)
	require.Len(t, who, 1)
	assert.Equal(t, carol.ID, who[0].ID)

	_, err = s.Favorite(ctx, models.Subject{Type: "poll", ID: note.ID}, bob.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentFavoriteCreatesOneEdge(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	note := mustPost(t, s, alice.ID, "hello")
	subject := models.Subject{Type: models.SubjectNote, ID: note.ID}

	var wg sync.WaitGroup
	results := make([]*FavoriteResult, 2)
	errs := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Favorite(ctx, subject, bob.ID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	outcomes := []Outcome{results[0].Outcome, results[1].Outcome}
	assert.ElementsMatch(t, []Outcome{Applied, AlreadyApplied}, outcomes)

	assert.EqualValues(t, 1, countRows(t, db, &models.EngagementEdge{}, "subject_type = ? AND subject_id = ?", models.SubjectNote, note.ID))
	n, err := s.CountFavorites(ctx, subject)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.EqualValues(t, 1, countRows(t, db, &models.Notification{}, "recipient_id = ?", alice.ID))
}

func TestCommentLifecycle(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	note := mustPost(t, s, alice.ID, "hello")

	_, err := s.Comment(ctx, note.ID, bob.ID, "  ", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	c, err := s.Comment(ctx, note.ID, bob.ID, "nice", "")
	require.NoError(t, err)

	// favorites on a comment notify the comment author about the comment publication
	fav, err := s.Favorite(ctx, models.Subject{Type: models.SubjectComment, ID: c.PublicationID}, carol.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fav.Favorites)
	assert.EqualValues(t, 1, countRows(t, db, &models.Notification{},
		"recipient_id = ? AND publication_id = ? AND type = ?", bob.ID, c.PublicationID, models.EventFavorite))

	views, err := s.Comments(ctx, carol.ID, note.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "nice", views[0].Text)
	assert.Equal(t, "bob", views[0].Author.Nickname)
	assert.EqualValues(t, 1, views[0].Favorites)
	assert.True(t, views[0].FavoritedByViewer)

	assert.ErrorIs(t, s.RemoveComment(ctx, c.PublicationID, alice.ID), ErrForbidden)
	require.NoError(t, s.RemoveComment(ctx, c.PublicationID, bob.ID))
	assert.ErrorIs(t, s.RemoveComment(ctx, c.PublicationID, bob.ID), ErrNotFound)

	assert.EqualValues(t, 0, countRows(t, db, &models.Comment{}, "note_id = ?", note.ID))
	assert.EqualValues(t, 0, countRows(t, db, &models.EngagementEdge{}, "subject_type = ?", models.SubjectComment))
	assert.EqualValues(t, 0, countRows(t, db, &models.Notification{}, "publication_id = ?", c.PublicationID))

	// an original publication is not a comment
	orig, err := repositories.NewStore(db).Publications.GetOriginal(ctx, note.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, s.RemoveComment(ctx, orig.ID, alice.ID), ErrNotFound)
}

func TestUnavailableNoteBlocksEngagement(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")

	note, _, err := s.CreateNote(ctx, NewNote{
		Kind:      models.NoteKindSharedFile,
		AuthorID:  alice.ID,
		TargetRef: "file-42",
		Scope:     models.Scope{Level: models.ScopeCourse, ID: 7},
	})
	require.NoError(t, err)
	subject := models.Subject{Type: models.SubjectNote, ID: note.ID}
	_, err = s.Favorite(ctx, subject, bob.ID)
	require.NoError(t, err)

	n, err := s.TargetRemoved(ctx, models.NoteKindSharedFile, "file-42")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = s.TargetRemoved(ctx, models.NoteKindSharedFile, "file-42")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	require.NoError(t, s.MarkUnavailable(ctx, note.ID))

	_, err = s.Comment(ctx, note.ID, bob.ID, "where is it?", "")
	assert.ErrorIs(t, err, ErrNoteUnavailable)
	_, err = s.Reshare(ctx, note.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNoteUnavailable)
	_, err = s.Favorite(ctx, subject, testutil.CreateUser(t, db, "carol").ID)
	assert.ErrorIs(t, err, ErrNoteUnavailable)

	// undoing is still allowed
	res, err := s.Unfavorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Outcome)

	page, err := s.FreshLoad(ctx, bob.ID, "s-bob", models.FilterAll)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.Entries[0].Note.Unavailable)
	assert.Equal(t, "Shared file file-42", page.Entries[0].Summary)
	assert.Equal(t, "files", page.Entries[0].Target.Subsystem)

	assert.ErrorIs(t, s.MarkUnavailable(ctx, note.ID+100), ErrNotFound)
	_, err = s.TargetRemoved(ctx, "poll", "x")
	assert.ErrorIs(t, err, ErrInvalidKind)
}

func TestRemoveNoteCompletely(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	note := mustPost(t, s, alice.ID, "hello @bob")

	_, err := s.Reshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	c, err := s.Comment(ctx, note.ID, bob.ID, "nice", "")
	require.NoError(t, err)
	_, err = s.Favorite(ctx, models.Subject{Type: models.SubjectNote, ID: note.ID}, bob.ID)
	require.NoError(t, err)
	_, err = s.Favorite(ctx, models.Subject{Type: models.SubjectComment, ID: c.PublicationID}, alice.ID)
	require.NoError(t, err)
	_, err = s.FreshLoad(ctx, bob.ID, "s-bob", models.FilterAll)
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveNoteCompletely(ctx, note.ID, bob.ID), ErrForbidden)
	require.NoError(t, s.RemoveNoteCompletely(ctx, note.ID, alice.ID))
	assert.ErrorIs(t, s.RemoveNoteCompletely(ctx, note.ID, alice.ID), ErrNotFound)

	_, err = s.GetNote(ctx, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 0, countRows(t, db, &models.Publication{}, "note_id = ?", note.ID))
	assert.EqualValues(t, 0, countRows(t, db, &models.Comment{}, "note_id = ?", note.ID))
	assert.EqualValues(t, 0, countRows(t, db, &models.EngagementEdge{}, "1 = 1"))
	assert.EqualValues(t, 0, countRows(t, db, &models.Notification{}, "1 = 1"))
	assert.EqualValues(t, 0, countRows(t, db, &models.TimelineDelivery{}, "note_id = ?", note.ID))
	assert.EqualValues(t, 0, countRows(t, db, &models.PostContent{}, "id = ?", note.ContentID))
}
