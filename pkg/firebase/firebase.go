// Package firebase bootstraps the Firebase Admin SDK for ID-token sign-in.
package firebase

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// App holds the Firebase app and its auth client. It verifies ID tokens for
// the auth middleware and the firebase-login handler.
type App struct {
	app  *firebase.App
	auth *auth.Client
}

// InitFirebase initializes the Firebase application from a service-account file
func InitFirebase(ctx context.Context, credentialsPath string) (*App, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("firebase credentials path not provided")
	}
	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file: %w", err)
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firebase auth client: %w", err)
	}

	slog.Info("firebase auth client initialized", "credentials", credentialsPath)
	return &App{app: app, auth: client}, nil
}

// VerifyIDToken checks a Firebase ID token, including revocation
func (a *App) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	return a.auth.VerifyIDTokenAndCheckRevoked(ctx, idToken)
}
