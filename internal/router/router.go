package router

import (
	"fmt"
	"log/slog"

	"github.com/anonto42/nano-midea/timeline/internal/handlers"
	"github.com/anonto42/nano-midea/timeline/internal/mention"
	"github.com/anonto42/nano-midea/timeline/internal/middleware"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"github.com/anonto42/nano-midea/timeline/internal/timeline"
	"github.com/anonto42/nano-midea/timeline/pkg/config"
	"github.com/labstack/echo/v4"
)

// SetupRoutes migrates the schema, wires repositories into the timeline
// service and registers every route. firebaseAuth may be nil in jwt mode.
func SetupRoutes(e *echo.Echo, db *config.DB, cfg *config.Config, firebaseAuth middleware.TokenVerifier, log *slog.Logger) error {
	if err := repositories.Migrate(db.Relational); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("relational auto-migrations completed")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	store := repositories.NewStore(db.Relational)
	userRepo := repositories.NewPostgresUserRepository(db.Relational)

	var contents repositories.PostContentRepository
	if db.Mongo != nil {
		contents = repositories.NewMongoPostContentRepository(db.Mongo.Database(cfg.Database.MongoDatabase))
		log.Info("post content stored in MongoDB", "database", cfg.Database.MongoDatabase)
	} else {
		contents = repositories.NewPostgresPostContentRepository(db.Relational)
	}

	svc := timeline.NewService(store, contents, userRepo, timeline.LabelScopes{}, timelineConfig(cfg.Timeline), log)

	// --- Unprotected routes for authentication ---
	if firebaseAuth != nil && cfg.Auth.JWTSecret != "" {
		authGroup := e.Group("/api/v1/auth")
		handlers.NewAuthHandler(userRepo, firebaseAuth, cfg.Auth.JWTSecret).RegisterAuthRoutes(authGroup)
		log.Info("auth routes configured")
	}

	// --- Protected routes ---
	api := e.Group("/api/v1")
	switch cfg.Auth.Mode {
	case config.AuthModeFirebase:
		if firebaseAuth == nil {
			return fmt.Errorf("auth mode %q needs a firebase client", cfg.Auth.Mode)
		}
		api.Use(middleware.FirebaseAuthMiddleware(firebaseAuth, userRepo))
	default:
		api.Use(middleware.JWTAuthMiddleware(cfg.Auth.JWTSecret))
	}
	log.Info("authentication middleware applied", "mode", cfg.Auth.Mode)

	handlers.NewUserHandler(userRepo, store.Follows).RegisterProfileRoutes(api)
	handlers.NewFollowHandler(store.Follows, userRepo).RegisterFollowRoutes(api)
	handlers.NewFeedHandler(svc).RegisterFeedRoutes(api)

	postHandler := handlers.NewPostHandler(svc)
	postHandler.RegisterPostRoutes(api)
	// publishing for other subsystems; trusted callers share the same auth
	postHandler.RegisterInternalRoutes(api.Group("/internal"))

	handlers.NewCommentHandler(svc).RegisterCommentRoutes(api)
	handlers.NewEngagementHandler(svc).RegisterEngagementRoutes(api)
	handlers.NewNotificationHandler(store.Notifications, userRepo).RegisterNotificationRoutes(api)

	log.Info("all routes configured")
	return nil
}

func timelineConfig(c config.TimelineConfig) timeline.Config {
	return timeline.Config{
		RecentBatch:     c.RecentBatch,
		OldBatch:        c.OldBatch,
		NewBatch:        c.NewBatch,
		CommentsPreview: c.CommentsPreview,
		Nicknames:       mention.Bounds{Min: c.NicknameMinLen, Max: c.NicknameMaxLen},
	}
}
