package timeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonto42/nano-midea/timeline/internal/models"
)

// LabelScopes names a scope by its level and id, e.g. "Course 7". It is the
// fallback when no hierarchy service is configured.
type LabelScopes struct{}

func (LabelScopes) ResolveScope(_ context.Context, scope models.Scope) (string, error) {
	if scope.Level == models.ScopeNone {
		return "", fmt.Errorf("%w: scope has no level", ErrInvalidInput)
	}
	level := string(scope.Level)
	return strings.ToUpper(level[:1]) + level[1:] + fmt.Sprintf(" %d", scope.ID), nil
}
