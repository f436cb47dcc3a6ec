package notekind

import (
	"fmt"

	"github.com/anonto42/nano-midea/timeline/internal/models"
)

type post struct{}

func (post) Kind() models.NoteKind { return models.NoteKindPost }

func (post) Check(targetRef string, _ models.Scope) error {
	if targetRef != "" {
		return fmt.Errorf("%w: posts carry no target reference", ErrInvalidKind)
	}
	return nil
}

func (post) Summarize(_ *models.Note, body, _ string) string {
	return Truncate(body, SummaryMaxRunes)
}

func (post) ResolveTarget(note *models.Note) Target {
	return Target{Subsystem: "timeline", Ref: fmt.Sprint(note.ID)}
}

// A post is its own target; it only goes away through explicit removal.
func (post) OnTargetRemoved() Action { return KeepNote }

type sharedFile struct{}

func (sharedFile) Kind() models.NoteKind { return models.NoteKindSharedFile }

func (sharedFile) Check(targetRef string, scope models.Scope) error {
	if targetRef == "" {
		return fmt.Errorf("%w: shared file without asset reference", ErrInvalidKind)
	}
	if scope.Level == models.ScopeNone || scope.ID == 0 {
		return fmt.Errorf("%w: shared file without hierarchy scope", ErrInvalidKind)
	}
	return nil
}

func (sharedFile) Summarize(note *models.Note, _, scopeName string) string {
	return withScope("Shared file "+note.TargetRef, scopeName)
}

func (sharedFile) ResolveTarget(note *models.Note) Target {
	return Target{Subsystem: "files", Ref: note.TargetRef}
}

func (sharedFile) OnTargetRemoved() Action { return MarkUnavailable }

// external covers kinds that only point at a record owned elsewhere
type external struct {
	kind      models.NoteKind
	subsystem string
	label     string
}

func (e external) Kind() models.NoteKind { return e.kind }

func (e external) Check(targetRef string, _ models.Scope) error {
	if targetRef == "" {
		return fmt.Errorf("%w: %s without target reference", ErrInvalidKind, e.kind)
	}
	return nil
}

func (e external) Summarize(_ *models.Note, _, scopeName string) string {
	return withScope(e.label, scopeName)
}

func (e external) ResolveTarget(note *models.Note) Target {
	return Target{Subsystem: e.subsystem, Ref: note.TargetRef}
}

func (external) OnTargetRemoved() Action { return MarkUnavailable }

type examAnnouncement struct{}

func (examAnnouncement) Kind() models.NoteKind { return models.NoteKindExamAnnouncement }

func (examAnnouncement) Check(targetRef string, scope models.Scope) error {
	if targetRef == "" {
		return fmt.Errorf("%w: exam announcement without target reference", ErrInvalidKind)
	}
	if scope.Level != models.ScopeCourse || scope.ID == 0 {
		return fmt.Errorf("%w: exam announcements belong to a course", ErrInvalidKind)
	}
	return nil
}

func (examAnnouncement) Summarize(_ *models.Note, _, scopeName string) string {
	return withScope("Exam announcement", scopeName)
}

func (examAnnouncement) ResolveTarget(note *models.Note) Target {
	return Target{Subsystem: "exams", Ref: note.TargetRef}
}

func (examAnnouncement) OnTargetRemoved() Action { return MarkUnavailable }
