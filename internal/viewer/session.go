// Package viewer owns the media viewer session: a state machine over the
// open/closed modal, sibling navigation for multi-video modules, and the
// external-open fallbacks for media that cannot be embedded.
package viewer

import (
	"context"
	"log/slog"
	"sync"

	"github.com/capassotech/epefi-cursos/internal/media"
	"github.com/capassotech/epefi-cursos/internal/progress"
)

// State is the viewer modal state.
type State int

const (
	StateClosed State = iota
	StateVideo
	StateDocument
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateVideo:
		return "video"
	case StateDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Item is one viewable media reference.
type Item struct {
	URL       string `json:"url"`
	Title     string `json:"titulo"`
	Thumbnail string `json:"miniatura,omitempty"`
}

// Opener performs the external-open side effect (a new browser tab, in
// practice) when media cannot or should not be rendered inline.
type Opener interface {
	OpenExternal(url string)
}

// Session is the viewer state machine. Exactly one session is active at
// a time; opening new media implicitly discards the previous session
// without side effects.
type Session struct {
	opener   Opener
	recorder progress.Recorder
	userID   string

	mu         sync.Mutex
	state      State
	moduleID   string
	item       Item
	media      media.Media
	siblings   []Item
	index      int
	completed  bool
	fullscreen bool
}

// NewSession creates a closed viewer session for the given user.
func NewSession(opener Opener, recorder progress.Recorder, userID string) *Session {
	if recorder == nil {
		recorder = progress.NopRecorder{}
	}
	return &Session{
		opener:   opener,
		recorder: recorder,
		userID:   userID,
	}
}

// OpenVideo opens the viewer on a module's video. siblings carries the
// full ordered item list for multi-video modules; index selects the
// starting item and is clamped into range.
func (s *Session) OpenVideo(moduleID string, siblings []Item, index int) {
	if len(siblings) == 0 {
		return
	}
	if index < 0 {
		index = 0
	}
	if index >= len(siblings) {
		index = len(siblings) - 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	s.state = StateVideo
	s.moduleID = moduleID
	s.siblings = siblings
	s.index = index
	s.item = siblings[index]
	s.media = media.Normalize(s.item.URL)
}

// OpenDocument opens the viewer on a module's document. Hosted-file-share
// references (Drive files as well as folders) never render inline: the
// session performs exactly one external-open of the view form and stays
// closed. This happens synchronously on open, not after a failed render.
// Only direct documents render inline.
func (s *Session) OpenDocument(moduleID string, item Item) {
	m := media.Normalize(item.URL)

	s.mu.Lock()
	s.reset()
	if m.Hosted() || !m.Embeddable() {
		s.mu.Unlock()
		s.openExternal(m.ViewURL())
		return
	}
	s.state = StateDocument
	s.moduleID = moduleID
	s.item = item
	s.media = m
	s.mu.Unlock()
}

// Close closes the modal and resets the fullscreen sub-state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

// reset clears session state; callers hold the lock.
func (s *Session) reset() {
	s.state = StateClosed
	s.moduleID = ""
	s.item = Item{}
	s.media = media.Media{}
	s.siblings = nil
	s.index = 0
	s.completed = false
	s.fullscreen = false
}

// Next advances to the next sibling video. A no-op at the last index.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVideo || s.index >= len(s.siblings)-1 {
		return false
	}
	s.index++
	s.item = s.siblings[s.index]
	s.media = media.Normalize(s.item.URL)
	return true
}

// Prev steps back to the previous sibling video. A no-op at index 0.
func (s *Session) Prev() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVideo || s.index <= 0 {
		return false
	}
	s.index--
	s.item = s.siblings[s.index]
	s.media = media.Normalize(s.item.URL)
	return true
}

// ToggleCompleted flips the completion flag and notifies the progress
// collaborator on behalf of userID, falling back to the session's
// default user when empty. The session itself persists nothing.
func (s *Session) ToggleCompleted(ctx context.Context, userID string) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	if userID == "" {
		userID = s.userID
	}
	s.completed = !s.completed
	entry := progress.Entry{
		UserID:    userID,
		ModuleID:  s.moduleID,
		ItemIndex: s.index,
		ItemType:  progress.ItemVideo,
		Completed: s.completed,
	}
	if s.state == StateDocument {
		entry.ItemType = progress.ItemDocument
	}
	s.mu.Unlock()

	return s.recorder.Record(ctx, entry)
}

// RenderFailed handles a load-error signal from the embed surface: the
// media is opened externally and the modal closes, so the user is never
// left looking at a broken embed.
func (s *Session) RenderFailed() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	target := s.media.ViewURL()
	s.reset()
	s.mu.Unlock()

	s.openExternal(target)
}

// HandleFullscreenChange syncs the fullscreen sub-state from a platform
// change signal, whichever way fullscreen was entered or exited. Only
// video sessions outside the Drive preview case track fullscreen.
func (s *Session) HandleFullscreenChange(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateVideo || s.media.Kind == media.KindDriveFile {
		return
	}
	s.fullscreen = active
}

func (s *Session) openExternal(url string) {
	if s.opener == nil {
		slog.Warn("no external opener configured", "url", url)
		return
	}
	s.opener.OpenExternal(url)
}

// State returns the current modal state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the active item and its sibling index.
func (s *Session) Current() (Item, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.item, s.index
}

// Media returns the normalized form of the active item.
func (s *Session) Media() media.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media
}

// Completed reports the session completion flag.
func (s *Session) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Fullscreen reports the fullscreen sub-state.
func (s *Session) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}
