// Package notekind holds the closed set of note kinds. Each kind is one
// Variant; adding a kind means adding one type here and registering it.
package notekind

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/anonto42/nano-midea/timeline/internal/models"
)

// ErrInvalidKind is returned for unknown kinds or kind/target mismatches
var ErrInvalidKind = errors.New("invalid note kind")

// SummaryMaxRunes bounds the summary shown for a note in the feed
const SummaryMaxRunes = 100

// Action is what happens to a note when the resource it points at is deleted
type Action int

const (
	KeepNote Action = iota
	MarkUnavailable
)

// Target locates the resource a note refers to in its owning subsystem
type Target struct {
	Subsystem string `json:"subsystem"`
	Ref       string `json:"ref"`
}

// Variant is the per-kind behaviour of a note
type Variant interface {
	Kind() models.NoteKind
	// Check validates target reference and scope for a new note of this kind.
	Check(targetRef string, scope models.Scope) error
	// Summarize renders a one-line description. body is the post text (plain posts
	// only) and scopeName the display name of the note's scope, possibly empty.
	Summarize(note *models.Note, body, scopeName string) string
	ResolveTarget(note *models.Note) Target
	OnTargetRemoved() Action
}

var registry = map[models.NoteKind]Variant{}

func register(v Variant) {
	registry[v.Kind()] = v
}

func init() {
	register(post{})
	register(sharedFile{})
	register(external{kind: models.NoteKindForumPost, subsystem: "forums", label: "Forum post"})
	register(external{kind: models.NoteKindNotice, subsystem: "notices", label: "Notice"})
	register(examAnnouncement{})
}

// Lookup returns the variant of a kind
func Lookup(kind models.NoteKind) (Variant, error) {
	v, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	return v, nil
}

// Check validates a prospective note against its kind
func Check(kind models.NoteKind, targetRef string, scope models.Scope) error {
	v, err := Lookup(kind)
	if err != nil {
		return err
	}
	return v.Check(targetRef, scope)
}

// Summarize describes a stored note; unknown kinds fall back to the kind name
func Summarize(note *models.Note, body, scopeName string) string {
	v, err := Lookup(note.Kind)
	if err != nil {
		return string(note.Kind)
	}
	return v.Summarize(note, body, scopeName)
}

// ResolveTarget locates the resource behind a stored note
func ResolveTarget(note *models.Note) Target {
	v, err := Lookup(note.Kind)
	if err != nil {
		return Target{Ref: note.TargetRef}
	}
	return v.ResolveTarget(note)
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n-1])) + "…"
}

func withScope(label, scopeName string) string {
	if scopeName == "" {
		return label
	}
	return label + " · " + scopeName
}
