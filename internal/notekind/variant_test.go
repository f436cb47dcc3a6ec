package notekind

import (
	"testing"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	course := models.Scope{Level: models.ScopeCourse, ID: 7}
	tests := []struct {
		name    string
		kind    models.NoteKind
		ref     string
		scope   models.Scope
		wantErr bool
	}{
		{"post", models.NoteKindPost, "", models.Scope{}, false},
		{"post with ref", models.NoteKindPost, "file-1", models.Scope{}, true},
		{"shared file", models.NoteKindSharedFile, "file-1", course, false},
		{"shared file without scope", models.NoteKindSharedFile, "file-1", models.Scope{}, true},
		{"shared file without ref", models.NoteKindSharedFile, "", course, true},
		{"forum post", models.NoteKindForumPost, "thread-3", models.Scope{}, false},
		{"notice without ref", models.NoteKindNotice, "", course, true},
		{"exam in course", models.NoteKindExamAnnouncement, "exam-9", course, false},
		{"exam in degree", models.NoteKindExamAnnouncement, "exam-9", models.Scope{Level: models.ScopeDegree, ID: 2}, true},
		{"unknown kind", models.NoteKind("poll"), "x", models.Scope{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.kind, tt.ref, tt.scope)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKind)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOnTargetRemoved(t *testing.T) {
	v, err := Lookup(models.NoteKindPost)
	require.NoError(t, err)
	assert.Equal(t, KeepNote, v.OnTargetRemoved())

	for _, kind := range []models.NoteKind{
		models.NoteKindSharedFile,
		models.NoteKindForumPost,
		models.NoteKindNotice,
		models.NoteKindExamAnnouncement,
	} {
		v, err := Lookup(kind)
		require.NoError(t, err)
		assert.Equal(t, MarkUnavailable, v.OnTargetRemoved(), kind)
	}
}

func TestSummarize(t *testing.T) {
	note := &models.Note{ID: 4, Kind: models.NoteKindSharedFile, TargetRef: "notes.pdf"}
	assert.Equal(t, "Shared file notes.pdf · Algebra I", Summarize(note, "", "Algebra I"))

	post := &models.Note{ID: 5, Kind: models.NoteKindPost}
	assert.Equal(t, "hello", Summarize(post, "  hello  ", ""))

	target := mustLookup(t, models.NoteKindForumPost).ResolveTarget(&models.Note{TargetRef: "42"})
	assert.Equal(t, Target{Subsystem: "forums", Ref: "42"}, target)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "ñañ…", Truncate("ñañañaña", 4))
}

func mustLookup(t *testing.T, kind models.NoteKind) Variant {
	t.Helper()
	v, err := Lookup(kind)
	require.NoError(t, err)
	return v
}
