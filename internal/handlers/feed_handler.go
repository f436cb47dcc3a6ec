package handlers

import (
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// FeedHandler serves the session timeline
type FeedHandler struct {
	timeline *timeline.Service
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(svc *timeline.Service) *FeedHandler {
	return &FeedHandler{timeline: svc}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/timeline", h.FreshLoad)
	g.GET("/timeline/new", h.PollNew)
	g.GET("/timeline/old", h.PollOld)
	g.DELETE("/timeline/session", h.EndSession)
}

func pageResponse(c echo.Context, page *timeline.Page) error {
	c.Response().Header().Set(SessionHeader, page.SessionID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"entries": page.Entries,
		},
		"meta": echo.Map{
			"session":   page.SessionID,
			"count":     len(page.Entries),
			"firstSeen": page.FirstSeen,
			"lastSeen":  page.LastSeen,
		},
	})
}

// FreshLoad resets the session window and returns the most recent notes.
// A session key is minted when the caller has none.
func (h *FeedHandler) FreshLoad(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	session := getSessionID(c)
	if session == "" {
		session = uuid.NewString()
	}

	page, err := h.timeline.FreshLoad(c.Request().Context(), userID, session, models.FeedFilter(c.QueryParam("filter")))
	if err != nil {
		return timelineError(err)
	}
	return pageResponse(c, page)
}

// PollNew returns notes that appeared since the last load
func (h *FeedHandler) PollNew(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, err := h.timeline.PollNew(c.Request().Context(), userID, getSessionID(c))
	if err != nil {
		return timelineError(err)
	}
	return pageResponse(c, page)
}

// PollOld returns the next batch of older notes
func (h *FeedHandler) PollOld(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	page, err := h.timeline.PollOld(c.Request().Context(), userID, getSessionID(c))
	if err != nil {
		return timelineError(err)
	}
	return pageResponse(c, page)
}

func (h *FeedHandler) EndSession(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.timeline.EndSession(c.Request().Context(), userID, getSessionID(c)); err != nil {
		return timelineError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
