package router

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/handlers"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/testutil"
	"github.com/anonto42/nano-midea/timeline/pkg/config"
	"github.com/anonto42/nano-midea/timeline/validators"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type testServer struct {
	t  *testing.T
	e  *echo.Echo
	db *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.TestDB(t)
	cfg := config.Load()
	cfg.Auth = config.AuthConfig{Mode: config.AuthModeJWT, JWTSecret: testSecret}
	cfg.Timeline = config.TimelineConfig{
		RecentBatch: 10, OldBatch: 20, NewBatch: 100, CommentsPreview: 3,
		NicknameMinLen: 3, NicknameMaxLen: 16,
	}

	e := echo.New()
	e.Validator = validators.NewValidator()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, SetupRoutes(e, &config.DB{Relational: db}, cfg, nil, log))
	return &testServer{t: t, e: e, db: db}
}

func (s *testServer) token(user *models.User) string {
	s.t.Helper()
	tok, err := handlers.IssueToken(testSecret, user, time.Hour)
	require.NoError(s.t, err)
	return tok
}

type response struct {
	Code    int            `json:"-"`
	Header  http.Header    `json:"-"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Meta    map[string]any `json:"meta"`
}

func (s *testServer) do(method, path, token, body string, header ...string) response {
	s.t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	out := response{Code: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return out
}

func noteID(t *testing.T, r response) uint64 {
	t.Helper()
	note, ok := r.Data["note"].(map[string]any)
	require.True(t, ok, "response has no note: %+v", r)
	inner, ok := note["note"].(map[string]any)
	require.True(t, ok)
	return uint64(inner["id"].(float64))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	r := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/timeline", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/timeline", "garbage", "").Code)
}

func TestPostShareFavoriteFlow(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	aliceTok, bobTok := s.token(alice), s.token(bob)

	r := s.do(http.MethodPost, "/api/v1/posts", aliceTok, `{"text":"hello @bob"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.Message)
	id := noteID(t, r)

	r = s.do(http.MethodPost, "/api/v1/posts", aliceTok, `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	// fresh load keyed by the token's jti
	r = s.do(http.MethodGet, "/api/v1/timeline", bobTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.NotEmpty(t, r.Header.Get(handlers.SessionHeader))
	assert.EqualValues(t, 1, r.Meta["count"])

	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/favorite", id), bobTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Marked as favorite", r.Message)
	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/favorite", id), bobTok, "")
	assert.Equal(t, "Already a favorite", r.Message)

	// a refused mutation still re-renders the note
	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/share", id), aliceTok, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "You are not allowed to do that", r.Message)
	assert.Equal(t, id, noteID(t, r))
	r = s.do(http.MethodPost, "/api/v1/notes/999/share", bobTok, "")
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Nil(t, r.Data)
	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/share", id), bobTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Shared", r.Message)

	// the reshare is a newer publication of a note bob already has
	r = s.do(http.MethodGet, "/api/v1/timeline/new", bobTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 0, r.Meta["count"])

	r = s.do(http.MethodGet, "/api/v1/notifications/unread-count", aliceTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 2, r.Data["count"]) // favorite + share

	r = s.do(http.MethodGet, "/api/v1/notifications", bobTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	list := r.Data["notifications"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, string(models.EventMention), list[0].(map[string]any)["type"])
}

func TestCommentRoutes(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	aliceTok, bobTok := s.token(alice), s.token(bob)

	id := noteID(t, s.do(http.MethodPost, "/api/v1/posts", aliceTok, `{"text":"question"}`))

	r := s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/comments", id), bobTok, `{"text":"answer"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.Message)
	comment := r.Data["comment"].(map[string]any)
	pubID := uint64(comment["publication_id"].(float64))

	r = s.do(http.MethodGet, fmt.Sprintf("/api/v1/notes/%d/comments", id), aliceTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, r.Data["comments"], 1)

	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/comments/%d/favorite", pubID), aliceTok, "")
	require.Equal(t, http.StatusOK, r.Code, r.Message)

	r = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", pubID), aliceTok, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	r = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", pubID), bobTok, "")
	assert.Equal(t, http.StatusOK, r.Code)
	r = s.do(http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", pubID), bobTok, "")
	assert.Equal(t, http.StatusNotFound, r.Code)
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")

	r := s.do(http.MethodGet, "/api/v1/timeline/new", s.token(alice), "", handlers.SessionHeader, "never-loaded")
	assert.Equal(t, http.StatusConflict, r.Code)

	r = s.do(http.MethodGet, "/api/v1/timeline", s.token(alice), "", handlers.SessionHeader, "tab-1")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "tab-1", r.Header.Get(handlers.SessionHeader))

	r = s.do(http.MethodGet, "/api/v1/timeline/old", s.token(bob), "", handlers.SessionHeader, "tab-1")
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = s.do(http.MethodGet, "/api/v1/timeline?filter=mine", s.token(alice), "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestRemovedTargetIsGone(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	aliceTok, bobTok := s.token(alice), s.token(bob)

	r := s.do(http.MethodPost, "/api/v1/internal/notes", aliceTok, `{"kind":"shared_file","target_ref":"file-1"}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = s.do(http.MethodPost, "/api/v1/internal/notes", aliceTok,
		`{"kind":"shared_file","target_ref":"file-1","scope_level":"course","scope_id":7}`)
	require.Equal(t, http.StatusCreated, r.Code, r.Message)
	id := noteID(t, r)
	entry := r.Data["note"].(map[string]any)
	assert.Equal(t, "Course 7", entry["scope_name"])

	r = s.do(http.MethodPost, "/api/v1/internal/targets/removed", aliceTok, `{"kind":"shared_file","target_ref":"file-1"}`)
	require.Equal(t, http.StatusOK, r.Code)
	assert.EqualValues(t, 1, r.Data["unavailable"])

	r = s.do(http.MethodPost, fmt.Sprintf("/api/v1/notes/%d/share", id), bobTok, "")
	assert.Equal(t, http.StatusGone, r.Code)
}

func TestFollowAndProfile(t *testing.T) {
	s := newTestServer(t)
	alice := testutil.CreateUser(t, s.db, "alice")
	bob := testutil.CreateUser(t, s.db, "bob")
	aliceTok := s.token(alice)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", alice.ID), aliceTok, "").Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", bob.ID), aliceTok, "").Code)
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", bob.ID), aliceTok, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/api/v1/users/999/follow", aliceTok, "").Code)

	r := s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/followers", bob.ID), aliceTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Len(t, r.Data["users"], 1)

	r = s.do(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", bob.ID), aliceTok, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, true, r.Data["following"])

	r = s.do(http.MethodPut, "/api/v1/profile/notifications", aliceTok, `{"notify_events":1}`)
	require.Equal(t, http.StatusOK, r.Code)
	var stored models.User
	require.NoError(t, s.db.First(&stored, alice.ID).Error)
	assert.EqualValues(t, 1, stored.NotifyEvents)

	r = s.do(http.MethodPut, "/api/v1/profile/notifications", aliceTok, `{"notify_events":99}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}
