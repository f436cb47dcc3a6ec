package timeline

import (
	"errors"
	"fmt"

	"github.com/anonto42/nano-midea/timeline/internal/notekind"
	"github.com/anonto42/nano-midea/timeline/internal/repositories"
	"gorm.io/gorm"
)

// Business errors. Anything else returned by the service is a store failure.
var (
	ErrNotFound        = errors.New("no longer exists")
	ErrForbidden       = errors.New("not allowed")
	ErrNoteUnavailable = errors.New("the original content no longer exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidKind     = notekind.ErrInvalidKind
	ErrNoWindow        = errors.New("timeline session has no window")
)

// IsBusiness reports whether err is one of the typed business errors
func IsBusiness(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrNoteUnavailable) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidKind) ||
		errors.Is(err, ErrNoWindow)
}

// Outcome is the result of an idempotent toggle
type Outcome int

const (
	Applied        Outcome = iota // the call changed state
	AlreadyApplied                // already shared / already favorited
	NotApplied                    // nothing to undo: not shared / not favorited
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case AlreadyApplied:
		return "already"
	case NotApplied:
		return "not_applied"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// lookupErr maps a missing row to ErrNotFound and wraps everything else
func lookupErr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, repositories.ErrContentNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
