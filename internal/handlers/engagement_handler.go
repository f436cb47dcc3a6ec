package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/labstack/echo/v4"
)

// EngagementHandler handles shares and favorites
type EngagementHandler struct {
	timeline *timeline.Service
}

// NewEngagementHandler creates a new EngagementHandler
func NewEngagementHandler(svc *timeline.Service) *EngagementHandler {
	return &EngagementHandler{timeline: svc}
}

// RegisterEngagementRoutes registers share and favorite routes
func (h *EngagementHandler) RegisterEngagementRoutes(g *echo.Group) {
	g.POST("/notes/:id/share", h.Share)
	g.DELETE("/notes/:id/share", h.Unshare)
	g.GET("/notes/:id/sharers", h.Sharers)

	g.POST("/notes/:id/favorite", h.favorite(models.SubjectNote, true))
	g.DELETE("/notes/:id/favorite", h.favorite(models.SubjectNote, false))
	g.GET("/notes/:id/favoriters", h.favoriters(models.SubjectNote))
	g.POST("/comments/:id/favorite", h.favorite(models.SubjectComment, true))
	g.DELETE("/comments/:id/favorite", h.favorite(models.SubjectComment, false))
	g.GET("/comments/:id/favoriters", h.favoriters(models.SubjectComment))
}

func (h *EngagementHandler) Share(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}

	res, err := h.timeline.Reshare(c.Request().Context(), noteID, userID)
	if err != nil {
		return noteError(c, h.timeline, noteID, err)
	}
	msg := statusMessage(res.Outcome, "Shared", "You already shared this", "")
	return renderNote(c, h.timeline, http.StatusOK, msg, noteID, echo.Map{"share": res})
}

func (h *EngagementHandler) Unshare(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}

	res, err := h.timeline.Unshare(c.Request().Context(), noteID, userID)
	if err != nil {
		return noteError(c, h.timeline, noteID, err)
	}
	msg := statusMessage(res.Outcome, "Share removed", "", "You had not shared this")
	return renderNote(c, h.timeline, http.StatusOK, msg, noteID, echo.Map{"share": res})
}

func (h *EngagementHandler) Sharers(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	noteID, err := parseID(c, "id", "note")
	if err != nil {
		return err
	}

	users, err := h.timeline.Sharers(c.Request().Context(), noteID)
	if err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": users}})
}

// favorite builds the add (on=true) or remove handler for a subject type
func (h *EngagementHandler) favorite(subjectType models.SubjectType, on bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := requireUser(c)
		if err != nil {
			return err
		}
		id, err := parseID(c, "id", string(subjectType))
		if err != nil {
			return err
		}
		subject := models.Subject{Type: subjectType, ID: id}
		ctx := c.Request().Context()

		var (
			res *timeline.FavoriteResult
			msg string
		)
		if on {
			res, err = h.timeline.Favorite(ctx, subject, userID)
			if err == nil {
				msg = statusMessage(res.Outcome, "Marked as favorite", "Already a favorite", "")
			}
		} else {
			res, err = h.timeline.Unfavorite(ctx, subject, userID)
			if err == nil {
				msg = statusMessage(res.Outcome, "Removed from favorites", "", "It was not a favorite")
			}
		}
		noteID := id
		if subjectType == models.SubjectComment {
			note, lookupErr := h.noteOfComment(c, id)
			if err == nil && lookupErr != nil {
				return lookupErr
			}
			noteID = note
		}
		if err != nil {
			return noteError(c, h.timeline, noteID, err)
		}
		return renderNote(c, h.timeline, http.StatusOK, msg, noteID, echo.Map{"favorite": res})
	}
}

func (h *EngagementHandler) noteOfComment(c echo.Context, pubID uint64) (uint64, error) {
	pub, err := h.timeline.GetPublication(c.Request().Context(), pubID)
	if err != nil {
		return 0, timelineError(err)
	}
	return pub.NoteID, nil
}

func (h *EngagementHandler) favoriters(subjectType models.SubjectType) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := requireUser(c); err != nil {
			return err
		}
		id, err := parseID(c, "id", string(subjectType))
		if err != nil {
			return err
		}

		users, err := h.timeline.Favoriters(c.Request().Context(), models.Subject{Type: subjectType, ID: id})
		if err != nil {
			return timelineError(err)
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": users}})
	}
}
