package tabs

import (
	"github.com/google/uuid"

	"github.com/quiverhq/quiver/internal/core"
)

// Session is one open, editable, possibly-unsaved request in the
// workspace. A session's id is stable across edits, sends, and saves;
// only the draft and flags move.
//
// Lifecycle: Clean (matches the last-persisted request, or a fresh
// draft) -> Dirty on any field edit -> back to Clean on an explicit
// save, or gone on close with no persistence side effect.
type Session struct {
	id        string
	requestID string // persisted request this tab maps to, "" if none
	draft     core.RequestDraft
	response  *core.Response
	dirty     bool
	saved     bool
}

func newSession(draft core.RequestDraft, requestID string, dirty bool) *Session {
	if draft.Method == "" {
		draft.Method = "GET"
	}
	if draft.BodyType == "" {
		draft.BodyType = core.BodyTypeNone
	}
	return &Session{
		id:        uuid.New().String(),
		requestID: requestID,
		draft:     draft,
		dirty:     dirty,
		saved:     requestID != "",
	}
}

// ID returns the stable tab identity.
func (s *Session) ID() string { return s.id }

// RequestID returns the persisted request this tab maps to, or "".
func (s *Session) RequestID() string { return s.requestID }

// Draft returns a copy of the editable fields.
func (s *Session) Draft() core.RequestDraft {
	d := s.draft
	d.Headers = append([]core.Header(nil), s.draft.Headers...)
	d.Params = append([]core.Param(nil), s.draft.Params...)
	d.Auth = s.draft.Auth.Clone()
	return d
}

// Response returns the last response shown on this tab, if any.
func (s *Session) Response() *core.Response { return s.response.Clone() }

// HasUnsavedChanges reports whether the tab diverges from its
// last-persisted request.
func (s *Session) HasUnsavedChanges() bool { return s.dirty }

// SavedToCollection reports whether the tab maps to a persisted request.
func (s *Session) SavedToCollection() bool { return s.saved }

// Title returns the display name for the tab.
func (s *Session) Title() string {
	if s.draft.Name != "" {
		return s.draft.Name
	}
	if s.draft.URL != "" {
		return s.draft.Method + " " + s.draft.URL
	}
	return "Untitled"
}
