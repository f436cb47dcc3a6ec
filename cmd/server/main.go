package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/nano-midea/timeline/internal/logging"
	"github.com/anonto42/nano-midea/timeline/internal/middleware"
	"github.com/anonto42/nano-midea/timeline/internal/router"
	"github.com/anonto42/nano-midea/timeline/pkg/config"
	"github.com/anonto42/nano-midea/timeline/pkg/firebase"
	"github.com/anonto42/nano-midea/timeline/validators"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	if path := cmd.String("config"); path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	slog.SetDefault(log)

	db, err := config.InitDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}
	defer db.CloseDB()

	var verifier middleware.TokenVerifier
	if cfg.Auth.FirebaseCredentialsPath != "" {
		app, err := firebase.InitFirebase(ctx, cfg.Auth.FirebaseCredentialsPath)
		if err != nil {
			return fmt.Errorf("failed to initialize Firebase: %w", err)
		}
		verifier = app
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()
	config.SetupMiddleware(e, log)
	if err := router.SetupRoutes(e, db, cfg, verifier, log); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		errCh <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func main() {
	cmd := &cli.Command{
		Name:   "timeline",
		Usage:  "Activity timeline service: notes, reshares, favorites, comments and notifications",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an optional YAML config file",
				Sources: cli.EnvVars("TIMELINE_CONFIG_FILE"),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
