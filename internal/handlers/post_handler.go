package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to notes and plain posts
type PostHandler struct {
	timeline *timeline.Service
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(svc *timeline.Service) *PostHandler {
	return &PostHandler{timeline: svc}
}

// RegisterPostRoutes registers note-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.GET("/notes/:id", h.GetNote)
	g.DELETE("/notes/:id", h.DeleteNote)
}

// RegisterInternalRoutes registers the hooks other subsystems call
func (h *PostHandler) RegisterInternalRoutes(g *echo.Group) {
	g.POST("/notes", h.PublishNote)
	g.POST("/targets/removed", h.TargetRemoved)
}

// noteResponse re-renders a note for the caller after a change
func (h *PostHandler) noteResponse(c echo.Context, status int, message string, noteID uint64) error {
	return renderNote(c, h.timeline, status, message, noteID, nil)
}

func renderNote(c echo.Context, svc *timeline.Service, status int, message string, noteID uint64, extra echo.Map) error {
	entry, err := svc.NoteEntry(c.Request().Context(), getUserIDFromContext(c), noteID)
	if err != nil {
		return timelineError(err)
	}
	data := echo.Map{"note": entry}
	for k, v := range extra {
		data[k] = v
	}
	return c.JSON(status, echo.Map{"success": true, "message": message, "data": data})
}

// noteError answers a failed mutation. A business error on a note that still
// renders carries the note along so the client can refresh it.
func noteError(c echo.Context, svc *timeline.Service, noteID uint64, err error) error {
	he := timelineError(err)
	if !timeline.IsBusiness(err) || noteID == 0 {
		return he
	}
	entry, lookupErr := svc.NoteEntry(c.Request().Context(), getUserIDFromContext(c), noteID)
	if lookupErr != nil {
		return he
	}
	return c.JSON(he.Code, echo.Map{"success": false, "message": he.Message, "data": echo.Map{"note": entry}})
}

// CreatePost publishes a plain post
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	scope := models.Scope{Level: req.ScopeLevel, ID: req.ScopeID}
	note, _, err := h.timeline.Post(c.Request().Context(), userID, req.Text, req.AssetHandle, scope)
	if err != nil {
		return timelineError(err)
	}
	return h.noteResponse(c, http.StatusCreated, "Post published", note.ID)
}

// UpdatePost edits the text or attachment of the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.timeline.EditPost(c.Request().Context(), noteID, userID, req.Text, req.AssetHandle); err != nil {
		return noteError(c, h.timeline, noteID, err)
	}
	return h.noteResponse(c, http.StatusOK, "Post updated", noteID)
}

func (h *PostHandler) GetNote(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}
	return h.noteResponse(c, http.StatusOK, "", noteID)
}

// DeleteNote removes a note with everything attached to it
func (h *PostHandler) DeleteNote(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}
	if err := h.timeline.RemoveNoteCompletely(c.Request().Context(), noteID, userID); err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Note removed", "data": echo.Map{"id": noteID}})
}

// PublishNote records a note for a resource owned by another subsystem.
// The caller is the note's author.
func (h *PostHandler) PublishNote(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.PublishNoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	note, _, err := h.timeline.CreateNote(c.Request().Context(), timeline.NewNote{
		Kind:      req.Kind,
		AuthorID:  userID,
		TargetRef: req.TargetRef,
		Scope:     models.Scope{Level: req.ScopeLevel, ID: req.ScopeID},
	})
	if err != nil {
		return timelineError(err)
	}
	return h.noteResponse(c, http.StatusCreated, "Note published", note.ID)
}

// TargetRemoved marks the notes of a deleted resource unavailable
func (h *PostHandler) TargetRemoved(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	var req models.TargetRemovedRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	n, err := h.timeline.TargetRemoved(c.Request().Context(), req.Kind, req.TargetRef)
	if err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"unavailable": n}})
}
