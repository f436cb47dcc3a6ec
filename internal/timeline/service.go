// Package timeline is the feed engine: it records notes and publications,
// keeps engagement edges, pages the feed per viewing session and fans out
// notifications.
package timeline

import (
	"context"
	"log/slog"

	"github.com/anonto42/nano-midea/timeline/internal/mention"
	"github.com/anonto42/nano-midea/timeline/internal/models"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
)

// Directory is the identity/preferences collaborator
type Directory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	ResolveHandle(ctx context.Context, handle string) (uint, error)
}

// ScopeResolver turns a hierarchy reference into a display name. It is best
// effort: errors only cost the breadcrumb.
type ScopeResolver interface {
	ResolveScope(ctx context.Context, scope models.Scope) (string, error)
}

// Config tunes batch sizes and mention bounds
type Config struct {
	RecentBatch     int // K_recent, notes per fresh load
	OldBatch        int // K_old, notes per "load more"
	NewBatch        int // cap on notes per poll for new activity
	CommentsPreview int // newest comments attached to each entry
	Nicknames       mention.Bounds
}

// DefaultConfig returns the stock batch sizes
func DefaultConfig() Config {
	return Config{
		RecentBatch:     10,
		OldBatch:        20,
		NewBatch:        10000,
		CommentsPreview: 3,
		Nicknames:       mention.Bounds{Min: 3, Max: 16},
	}
}

// Service implements the timeline operations on top of the store
type Service struct {
	store     *repositories.Store
	contents  repositories.PostContentRepository
	directory Directory
	scopes    ScopeResolver
	cfg       Config
	log       *slog.Logger
}

// NewService wires the engine. scopes may be nil.
func NewService(
	store *repositories.Store,
	contents repositories.PostContentRepository,
	directory Directory,
	scopes ScopeResolver,
	cfg Config,
	log *slog.Logger,
) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:     store,
		contents:  contents,
		directory: directory,
		scopes:    scopes,
		cfg:       cfg,
		log:       log.With("component", "timeline"),
	}
}

// Config returns the active configuration
func (s *Service) Config() Config {
	return s.cfg
}
