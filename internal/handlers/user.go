package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository) *UserHandler {
	return &UserHandler{userRepository: userRepo, followRepository: followRepo}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile/notifications", h.UpdateNotifyPrefs)
	g.GET("/users/:id", h.GetUser)
}

// GetUser returns the public block of another user and whether the caller follows them
func (h *UserHandler) GetUser(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUser(ctx, uint(id))
	if err != nil {
		return userError(err)
	}
	following, err := h.followRepository.IsFollowing(ctx, currentUserID, user.ID)
	if err != nil {
		return userError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"user": user.ToCompact(), "following": following}})
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	user, err := h.userRepository.GetUser(c.Request().Context(), userID)
	if err != nil {
		return userError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateNotifyPrefs changes which events notify the caller and which also e-mail
func (h *UserHandler) UpdateNotifyPrefs(c echo.Context) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateNotifyPrefsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.userRepository.GetUser(ctx, userID)
	if err != nil {
		return userError(err)
	}
	if req.NotifyEvents != nil {
		user.NotifyEvents = *req.NotifyEvents
	}
	if req.EmailEvents != nil {
		user.EmailEvents = *req.EmailEvents
	}

	if err := h.userRepository.UpdateNotifyPrefs(ctx, userID, user.NotifyEvents, user.EmailEvents); err != nil {
		return userError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func userError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error").SetInternal(err)
}
