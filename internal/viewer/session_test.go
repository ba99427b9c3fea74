package viewer_test

import (
	"context"
	"sync"
	"testing"

	"github.com/capassotech/epefi-cursos/internal/media"
	"github.com/capassotech/epefi-cursos/internal/progress"
	"github.com/capassotech/epefi-cursos/internal/viewer"
)

type recordingOpener struct {
	mu   sync.Mutex
	urls []string
}

func (o *recordingOpener) OpenExternal(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.urls = append(o.urls, url)
}

func (o *recordingOpener) URLs() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.urls))
	copy(out, o.urls)
	return out
}

func videoItems() []viewer.Item {
	return []viewer.Item{
		{URL: "https://www.youtube.com/watch?v=v1", Title: "Parte 1"},
		{URL: "https://www.youtube.com/watch?v=v2", Title: "Parte 2"},
		{URL: "https://www.youtube.com/watch?v=v3", Title: "Parte 3"},
	}
}

func TestSession_OpenVideo(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")

	s.OpenVideo("m1", videoItems(), 0)

	if s.State() != viewer.StateVideo {
		t.Fatalf("State() = %v, want %v", s.State(), viewer.StateVideo)
	}
	item, index := s.Current()
	if index != 0 || item.Title != "Parte 1" {
		t.Errorf("Current() = %+v at %d, want Parte 1 at 0", item, index)
	}
	if s.Media().Target != "https://www.youtube.com/embed/v1" {
		t.Errorf("Media().Target = %q, want embed form", s.Media().Target)
	}
}

func TestSession_NextPrevClampAtBounds(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")
	s.OpenVideo("m1", videoItems(), 0)

	if s.Prev() {
		t.Error("Prev() at index 0 should be a no-op")
	}
	if _, index := s.Current(); index != 0 {
		t.Errorf("index = %d, want 0", index)
	}

	if !s.Next() || !s.Next() {
		t.Fatal("Next() should advance twice")
	}
	if s.Next() {
		t.Error("Next() at last index should be a no-op")
	}

	item, index := s.Current()
	if index != 2 || item.Title != "Parte 3" {
		t.Errorf("Current() = %+v at %d, want Parte 3 at 2", item, index)
	}
}

func TestSession_OpenVideoClampsStartIndex(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")

	s.OpenVideo("m1", videoItems(), 99)

	if _, index := s.Current(); index != 2 {
		t.Errorf("index = %d, want clamped to 2", index)
	}
}

func TestSession_OpenDocumentDriveNeverRendersInline(t *testing.T) {
	opener := &recordingOpener{}
	s := viewer.NewSession(opener, nil, "u1")

	s.OpenDocument("m1", viewer.Item{URL: "https://drive.google.com/drive/folders/F42"})

	if s.State() != viewer.StateClosed {
		t.Fatalf("State() = %v, want closed (external-open instead of inline)", s.State())
	}
	urls := opener.URLs()
	if len(urls) != 1 {
		t.Fatalf("external opens = %d, want exactly 1", len(urls))
	}
	if urls[0] != "https://drive.google.com/drive/folders/F42" {
		t.Errorf("opened %q, want the original folder URL", urls[0])
	}
}

func TestSession_OpenDocumentDriveFileOpensExternally(t *testing.T) {
	opener := &recordingOpener{}
	s := viewer.NewSession(opener, nil, "u1")

	s.OpenDocument("m1", viewer.Item{URL: "https://drive.google.com/file/d/FILE123/view?usp=sharing"})

	if s.State() != viewer.StateClosed {
		t.Fatalf("State() = %v, want closed (hosted documents never render inline)", s.State())
	}
	urls := opener.URLs()
	if len(urls) != 1 {
		t.Fatalf("external opens = %d, want exactly 1", len(urls))
	}
	if urls[0] != "https://drive.google.com/file/d/FILE123/view" {
		t.Errorf("opened %q, want the drive view form", urls[0])
	}
}

func TestSession_OpenDocumentDirectRendersInline(t *testing.T) {
	opener := &recordingOpener{}
	s := viewer.NewSession(opener, nil, "u1")

	s.OpenDocument("m1", viewer.Item{URL: "https://cdn.example.com/apunte.pdf"})

	if s.State() != viewer.StateDocument {
		t.Fatalf("State() = %v, want %v", s.State(), viewer.StateDocument)
	}
	if got := s.Media().Target; got != "https://cdn.example.com/apunte.pdf" {
		t.Errorf("Media().Target = %q, want the direct URL", got)
	}
	if len(opener.URLs()) != 0 {
		t.Errorf("external opens = %v, want none", opener.URLs())
	}
}

func TestSession_RenderFailedFallsBackToExternal(t *testing.T) {
	opener := &recordingOpener{}
	s := viewer.NewSession(opener, nil, "u1")
	s.OpenDocument("m1", viewer.Item{URL: "https://cdn.example.com/apunte.pdf"})

	s.RenderFailed()

	if s.State() != viewer.StateClosed {
		t.Errorf("State() = %v, want closed after render failure", s.State())
	}
	urls := opener.URLs()
	if len(urls) != 1 || urls[0] != "https://cdn.example.com/apunte.pdf" {
		t.Errorf("opened %v, want the document URL", urls)
	}
}

func TestSession_RenderFailedWhenClosedIsNoOp(t *testing.T) {
	opener := &recordingOpener{}
	s := viewer.NewSession(opener, nil, "u1")

	s.RenderFailed()

	if len(opener.URLs()) != 0 {
		t.Errorf("external opens = %v, want none", opener.URLs())
	}
}

func TestSession_ToggleCompletedNotifiesRecorder(t *testing.T) {
	recorder := progress.NewMemoryRecorder()
	s := viewer.NewSession(&recordingOpener{}, recorder, "u1")
	s.OpenVideo("m1", videoItems(), 1)

	if err := s.ToggleCompleted(context.Background(), ""); err != nil {
		t.Fatalf("ToggleCompleted() error = %v", err)
	}
	if !s.Completed() {
		t.Error("Completed() = false, want true")
	}

	entries := recorder.Entries()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.UserID != "u1" || e.ModuleID != "m1" || e.ItemIndex != 1 || e.ItemType != progress.ItemVideo || !e.Completed {
		t.Errorf("entry = %+v", e)
	}

	if err := s.ToggleCompleted(context.Background(), ""); err != nil {
		t.Fatalf("ToggleCompleted() error = %v", err)
	}
	if s.Completed() {
		t.Error("Completed() = true, want false after second toggle")
	}
	if entries := recorder.Entries(); len(entries) != 2 || entries[1].Completed {
		t.Errorf("second entry = %+v, want completed=false", entries[len(entries)-1])
	}
}

func TestSession_ToggleCompletedUsesRequestUser(t *testing.T) {
	recorder := progress.NewMemoryRecorder()
	// No default user, matching how the process wires the session.
	s := viewer.NewSession(&recordingOpener{}, recorder, "")
	s.OpenVideo("m1", videoItems(), 0)

	if err := s.ToggleCompleted(context.Background(), "u9"); err != nil {
		t.Fatalf("ToggleCompleted() error = %v", err)
	}

	entries := recorder.Entries()
	if len(entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(entries))
	}
	if entries[0].UserID != "u9" {
		t.Errorf("UserID = %q, want the request's user u9", entries[0].UserID)
	}
}

func TestSession_ToggleCompletedWithoutAnyUserFails(t *testing.T) {
	recorder := progress.NewMemoryRecorder()
	s := viewer.NewSession(&recordingOpener{}, recorder, "")
	s.OpenVideo("m1", videoItems(), 0)

	if err := s.ToggleCompleted(context.Background(), ""); err == nil {
		t.Fatal("ToggleCompleted() with no user anywhere should surface the recorder's error")
	}
	if got := len(recorder.Entries()); got != 0 {
		t.Errorf("recorded %d entries, want none", got)
	}
}

func TestSession_OpeningNewMediaDiscardsPrevious(t *testing.T) {
	recorder := progress.NewMemoryRecorder()
	s := viewer.NewSession(&recordingOpener{}, recorder, "u1")

	s.OpenVideo("m1", videoItems(), 2)
	_ = s.ToggleCompleted(context.Background(), "")

	s.OpenVideo("m2", videoItems()[:1], 0)

	if s.Completed() {
		t.Error("completion flag must not carry over to the new session")
	}
	if _, index := s.Current(); index != 0 {
		t.Errorf("index = %d, want 0", index)
	}
	// Discarding must not mark anything complete.
	if got := len(recorder.Entries()); got != 1 {
		t.Errorf("recorded %d entries, want 1", got)
	}
}

func TestSession_FullscreenSyncsFromChangeEvents(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")
	s.OpenVideo("m1", videoItems(), 0)

	s.HandleFullscreenChange(true)
	if !s.Fullscreen() {
		t.Error("Fullscreen() = false, want true after change event")
	}

	s.HandleFullscreenChange(false)
	if s.Fullscreen() {
		t.Error("Fullscreen() = true, want false after exit event")
	}
}

func TestSession_CloseResetsFullscreen(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")
	s.OpenVideo("m1", videoItems(), 0)
	s.HandleFullscreenChange(true)

	s.Close()

	if s.Fullscreen() {
		t.Error("Fullscreen() = true, want reset on close")
	}
	if s.State() != viewer.StateClosed {
		t.Errorf("State() = %v, want closed", s.State())
	}
}

func TestSession_DrivePreviewIgnoresFullscreen(t *testing.T) {
	s := viewer.NewSession(&recordingOpener{}, nil, "u1")
	s.OpenVideo("m1", []viewer.Item{{URL: "https://drive.google.com/file/d/F1/view"}}, 0)

	if s.Media().Kind != media.KindDriveFile {
		t.Fatalf("Kind = %v, want drive file", s.Media().Kind)
	}

	s.HandleFullscreenChange(true)
	if s.Fullscreen() {
		t.Error("drive preview must not track fullscreen")
	}
}
