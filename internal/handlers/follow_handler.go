package handlers

import (
	"errors"
	"net/http"

	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// FollowHandler handles follow/unfollow HTTP requests. Follows feed the
// "followed" timeline filter.
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

func (h *FollowHandler) targetUser(c echo.Context) (uint, error) {
	id, err := parseID(c, "id", "user")
	if err != nil {
		return 0, err
	}
	if _, err := h.userRepository.GetUser(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return 0, timelineError(err)
	}
	return uint(id), nil
}

// FollowUser follows a user
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	targetID, err := h.targetUser(c)
	if err != nil {
		return err
	}
	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	created, err := h.followRepository.CreateFollow(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return timelineError(err)
	}
	if !created {
		return echo.NewHTTPError(http.StatusConflict, "Already following this user")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": true}})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, err := requireUser(c)
	if err != nil {
		return err
	}
	targetID, err := parseID(c, "id", "user")
	if err != nil {
		return err
	}

	if _, err := h.followRepository.DeleteFollow(c.Request().Context(), currentUserID, uint(targetID)); err != nil {
		return timelineError(err)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"following": false}})
}

// GetFollowers lists who follows a user
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	targetID, err := h.targetUser(c)
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), targetID)
	if err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": compact(users)}})
}

// GetFollowing lists who a user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	if _, err := requireUser(c); err != nil {
		return err
	}
	targetID, err := h.targetUser(c)
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), targetID)
	if err != nil {
		return timelineError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"users": compact(users)}})
}

func compact(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}
