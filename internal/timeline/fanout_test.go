package timeline

import (
	"context"
	"testing"

	"github.com/anonto42/nano-midea/timeline/internal/mention"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/anonto42/nano-midea/timeline/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func notificationsFor(t *testing.T, db *gorm.DB, recipient uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	require.NoError(t, db.Where("recipient_id = ?", recipient).Order("id").Find(&out).Error)
	return out
}

func TestPostMentionsFanOut(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	quiet := testutil.CreateUser(t, db, "quiet")
	users := repositories.NewPostgresUserRepository(db)
	require.NoError(t, users.UpdateNotifyPrefs(ctx, carol.ID, models.AllEvents, models.EventMention.Bit()))
	require.NoError(t, users.UpdateNotifyPrefs(ctx, quiet.ID, models.EventComment.Bit(), 0))

	_, pub, err := s.Post(ctx, alice.ID, "hi @Bob, @carol and @ghost! cc @alice @quiet mail@bob.example", "", models.Scope{})
	require.NoError(t, err)

	bobs := notificationsFor(t, db, bob.ID)
	require.Len(t, bobs, 1)
	assert.Equal(t, models.EventMention, bobs[0].Type)
	assert.Equal(t, alice.ID, bobs[0].ActorID)
	assert.Equal(t, pub.ID, bobs[0].PublicationID)
	assert.False(t, bobs[0].Email)

	carols := notificationsFor(t, db, carol.ID)
	require.Len(t, carols, 1)
	assert.True(t, carols[0].Email)

	assert.Empty(t, notificationsFor(t, db, alice.ID))
	assert.Empty(t, notificationsFor(t, db, quiet.ID))

	created, err := s.FanOut(ctx, Event{Kind: models.EventMention, PublicationID: pub.ID})
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Len(t, notificationsFor(t, db, bob.ID), 1)
}

func TestMentionBoundsFromConfig(t *testing.T) {
	s, db := newTestService(t, func(c *Config) { c.Nicknames = mention.Bounds{Min: 2, Max: 20} })
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	x := testutil.CreateUser(t, db, "x")

	mustPost(t, s, alice.ID, "hi @bob and @x!")
	assert.Len(t, notificationsFor(t, db, bob.ID), 1)
	assert.Empty(t, notificationsFor(t, db, x.ID))
}

func TestCommentNotifiesAuthorOnce(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	note := mustPost(t, s, alice.ID, "hello")

	c, err := s.Comment(ctx, note.ID, bob.ID, "@alice look, @carol too. <b>@bob</b>", "")
	require.NoError(t, err)

	alices := notificationsFor(t, db, alice.ID)
	require.Len(t, alices, 1)
	assert.Equal(t, models.EventComment, alices[0].Type)
	assert.Equal(t, c.PublicationID, alices[0].PublicationID)

	carols := notificationsFor(t, db, carol.ID)
	require.Len(t, carols, 1)
	assert.Equal(t, models.EventMention, carols[0].Type)

	assert.Empty(t, notificationsFor(t, db, bob.ID))

	// the author commenting on their own note notifies nobody
	_, err = s.Comment(ctx, note.ID, alice.ID, "thanks", "")
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, db, alice.ID), 1)
}

func TestShareAndFavoriteNotifications(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	note := mustPost(t, s, alice.ID, "hello")

	share, err := s.Reshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	_, err = s.Favorite(ctx, models.Subject{Type: models.SubjectNote, ID: note.ID}, bob.ID)
	require.NoError(t, err)

	got := notificationsFor(t, db, alice.ID)
	require.Len(t, got, 2)
	assert.Equal(t, models.EventShare, got[0].Type)
	assert.Equal(t, share.PublicationID, got[0].PublicationID)
	assert.Equal(t, models.EventFavorite, got[1].Type)
	assert.Equal(t, bob.ID, got[1].ActorID)

	_, err = s.Unfavorite(ctx, models.Subject{Type: models.SubjectNote, ID: note.ID}, bob.ID)
	require.NoError(t, err)
	got = notificationsFor(t, db, alice.ID)
	assert.True(t, got[1].Removed)

	_, err = s.Unshare(ctx, note.ID, bob.ID)
	require.NoError(t, err)
	assert.Len(t, notificationsFor(t, db, alice.ID), 1)
}

func TestFavoriteNotificationFollowsLatestFavoriter(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	dave := testutil.CreateUser(t, db, "dave")
	note := mustPost(t, s, alice.ID, "hello")
	subject := models.Subject{Type: models.SubjectNote, ID: note.ID}

	visible := func() []models.Notification {
		var out []models.Notification
		for _, n := range notificationsFor(t, db, alice.ID) {
			if !n.Removed {
				out = append(out, n)
			}
		}
		return out
	}

	// favorite, unfavorite, then someone else favorites
	_, err := s.Favorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	_, err = s.Unfavorite(ctx, subject, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, visible())

	_, err = s.Favorite(ctx, subject, carol.ID)
	require.NoError(t, err)
	got := visible()
	require.Len(t, got, 1)
	assert.Equal(t, carol.ID, got[0].ActorID)
	assert.False(t, got[0].Seen)
	assert.Len(t, notificationsFor(t, db, alice.ID), 1)

	// a second favoriter while the first still stands
	require.NoError(t, db.Model(&models.Notification{}).Where("id = ?", got[0].ID).Update("seen", true).Error)
	_, err = s.Favorite(ctx, subject, dave.ID)
	require.NoError(t, err)
	got = visible()
	require.Len(t, got, 1)
	assert.Equal(t, dave.ID, got[0].ActorID)
	assert.False(t, got[0].Seen)

	// replaying the same event changes nothing
	created, err := s.FanOut(ctx, Event{Kind: models.EventFavorite, PublicationID: got[0].PublicationID, ActorID: dave.ID})
	require.NoError(t, err)
	assert.Zero(t, created)

	// an earlier favoriter leaving does not hide the later one
	_, err = s.Unfavorite(ctx, subject, carol.ID)
	require.NoError(t, err)
	got = visible()
	require.Len(t, got, 1)
	assert.Equal(t, dave.ID, got[0].ActorID)
}

func TestFanOutValidation(t *testing.T) {
	s, db := newTestService(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "alice")
	_, pub, err := s.Post(ctx, alice.ID, "hello", "", models.Scope{})
	require.NoError(t, err)

	_, err = s.FanOut(ctx, Event{Kind: models.EventFavorite, PublicationID: pub.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.FanOut(ctx, Event{Kind: "timeline_poke", PublicationID: pub.ID})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.FanOut(ctx, Event{Kind: models.EventShare, PublicationID: pub.ID + 100})
	assert.ErrorIs(t, err, ErrNotFound)

	// a recipient that no longer exists is skipped
	require.NoError(t, db.Delete(&models.User{}, alice.ID).Error)
	created, err := s.FanOut(ctx, Event{Kind: models.EventFavorite, PublicationID: pub.ID, ActorID: 999})
	require.NoError(t, err)
	assert.Zero(t, created)
}
