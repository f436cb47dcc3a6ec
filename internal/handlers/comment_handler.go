package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	timeline *timeline.Service
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(svc *timeline.Service) *CommentHandler {
	return &CommentHandler{timeline: svc}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/notes/:id/comments", h.CreateComment)
	g.GET("/notes/:id/comments", h.GetComments)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// CreateComment comments a note and returns the re-rendered note
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.timeline.Comment(c.Request().Context(), noteID, userID, req.Text, req.AssetHandle)
	if err != nil {
		return noteError(c, h.timeline, noteID, err)
	}
	return renderNote(c, h.timeline, http.StatusCreated, "Comment published", noteID, echo.Map{"comment": comment})
}

// GetComments lists every comment of a note, oldest first
func (h *CommentHandler) GetComments(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}

	comments, err := h.timeline.Comments(c.Request().Context(), userID, noteID)
	if err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"comments": comments}})
}

// DeleteComment removes the caller's own comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	pubID, err := parseID(c, "id", "comment")
	if err != nil {
		return err
	}

	if err := h.timeline.RemoveComment(c.Request().Context(), pubID, userID); err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Comment removed", "data": echo.Map{"id": pubID}})
}
