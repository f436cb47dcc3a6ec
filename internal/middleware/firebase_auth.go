package middleware

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// TokenVerifier is the part of *auth.Client the middleware needs
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// UserLookup maps a Firebase UID to a local user
type UserLookup interface {
	GetUserByFirebaseUID(ctx context.Context, firebaseUID string) (*models.User, error)
}

// FirebaseAuthMiddleware verifies Firebase ID tokens and resolves the local user
func FirebaseAuthMiddleware(verifier TokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idToken, err := bearerToken(c)
			if err != nil {
				return err
			}

			ctx := c.Request().Context()
			token, err := verifier.VerifyIDToken(ctx, idToken)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired ID token")
			}

			user, err := users.GetUserByFirebaseUID(ctx, token.UID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Unknown user, sign in through /auth/firebase-login first")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to resolve user").SetInternal(err)
			}

			c.Set("firebaseUID", token.UID)
			c.Set(UserIDKey, user.ID)

			return next(c)
		}
	}
}
