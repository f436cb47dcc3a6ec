package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/middleware"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const tokenTTL = 72 * time.Hour

// AuthHandler exchanges Firebase ID tokens for local JWTs
type AuthHandler struct {
	userRepository repositories.UserRepository
	verifier       middleware.TokenVerifier
	jwtSecret      string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, verifier middleware.TokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		verifier:       verifier,
		jwtSecret:      jwtSecret,
	}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/firebase-login", h.FirebaseLogin)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token, creates the local user on first
// sight and issues a local JWT. Every token gets a fresh jti, which is the
// timeline session of that sign-in.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	token, err := h.verifier.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, token.UID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = &models.User{
			Nickname:     nicknameFor(email, token.UID),
			DisplayName:  name,
			Email:        email,
			FirebaseUID:  token.UID,
			NotifyEvents: models.AllEvents,
		}
		if err := h.userRepository.CreateUser(ctx, user); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user").SetInternal(err)
		}
	} else if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Database error").SetInternal(err)
	}

	localJWT, err := h.generateJWT(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate local JWT").SetInternal(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"token": localJWT, "user": user.ToCompact()})
}

// generateJWT generates a JWT token for a given user
func (h *AuthHandler) generateJWT(user *models.User) (string, error) {
	return IssueToken(h.jwtSecret, user, tokenTTL)
}

// IssueToken signs an HS256 token for user with a fresh jti
func IssueToken(secret string, user *models.User, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &models.JwtCustomClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// nicknameFor derives a mention handle from the e-mail local part, falling
// back to the Firebase UID. The UID suffix keeps it unique.
func nicknameFor(email, uid string) string {
	base := email
	if i := strings.IndexByte(base, '@'); i >= 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(base) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	nick := b.String()
	if len(nick) > 10 {
		nick = nick[:10]
	}
	suffix := strings.ToLower(uid)
	if len(suffix) > 5 {
		suffix = suffix[:5]
	}
	if nick == "" {
		nick = "user"
	}
	return nick + "_" + suffix
}
