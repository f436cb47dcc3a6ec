package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/anonto42/nano-midea/timeline/internal/middleware"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/labstack/echo/v4"
)

// SessionHeader carries the timeline session key when the token has no jti
const SessionHeader = "X-Timeline-Session"

func getUserIDFromContext(c echo.Context) uint {
	id, _ := c.Get(middleware.UserIDKey).(uint)
	return id
}

// getSessionID prefers the explicit header over the token's jti
func getSessionID(c echo.Context) string {
	if s := c.Request().Header.Get(SessionHeader); s != "" {
		return s
	}
	s, _ := c.Get(middleware.SessionIDKey).(string)
	return s
}

func requireUser(c echo.Context) (uint, error) {
	id := getUserIDFromContext(c)
	if id == 0 {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	return id, nil
}

func parseID(c echo.Context, name, label string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+label+" ID")
	}
	return id, nil
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// timelineError turns engine errors into one-line HTTP errors. Anything that
// is not a business error is a 500 with the cause kept for the request log.
func timelineError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, timeline.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "This content no longer exists")
	case errors.Is(err, timeline.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "You are not allowed to do that")
	case errors.Is(err, timeline.ErrNoteUnavailable):
		return echo.NewHTTPError(http.StatusGone, "The original content no longer exists")
	case errors.Is(err, timeline.ErrNoWindow):
		return echo.NewHTTPError(http.StatusConflict, "Reload the timeline")
	case errors.Is(err, timeline.ErrInvalidInput), errors.Is(err, timeline.ErrInvalidKind):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if timeline.IsBusiness(err) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}

// statusMessage is the one-line message attached to toggle responses
func statusMessage(o timeline.Outcome, applied, already, notApplied string) string {
	switch o {
	case timeline.AlreadyApplied:
		return already
	case timeline.NotApplied:
		return notApplied
	}
	return applied
}
