package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/capassotech/epefi-cursos/internal/content"
	"github.com/capassotech/epefi-cursos/internal/contentapi"
	"github.com/capassotech/epefi-cursos/internal/continuation"
	"github.com/capassotech/epefi-cursos/internal/deeplink"
	"github.com/capassotech/epefi-cursos/internal/media"
	"github.com/capassotech/epefi-cursos/internal/platform/cache"
	"github.com/capassotech/epefi-cursos/internal/platform/database"
	"github.com/capassotech/epefi-cursos/internal/progress"
	"github.com/capassotech/epefi-cursos/internal/viewer"
)

type server struct {
	loader   *content.Loader
	resolver *deeplink.Resolver
	tracker  *continuation.Tracker
	session  *viewer.Session
	feed     *viewer.Feed
	opener   *relayOpener
	progress *progress.PostgresRecorder
	db       *database.DB
	cache    *cache.Cache
}

// relayOpener captures external-open side effects so handlers can relay
// the URL to the page shell, which performs the actual window open.
type relayOpener struct {
	mu  sync.Mutex
	url string
}

func (o *relayOpener) OpenExternal(url string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.url = url
}

// Take returns and clears the pending external-open URL.
func (o *relayOpener) Take() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	url := o.url
	o.url = ""
	return url
}

func newMux(s *server) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/cursos/{id}/tree", s.handleTree)
	mux.HandleFunc("GET /api/cursos/{id}/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/continue", s.handleContinue)
	mux.HandleFunc("GET /api/media/normalize", s.handleNormalize)
	mux.HandleFunc("POST /api/viewer/open", s.handleViewerOpen)
	mux.HandleFunc("POST /api/viewer/nav", s.handleViewerNav)
	mux.HandleFunc("POST /api/viewer/complete", s.handleViewerComplete)
	mux.HandleFunc("POST /api/viewer/close", s.handleViewerClose)
	mux.HandleFunc("GET /api/viewer", s.handleViewerState)
	if s.feed != nil {
		mux.Handle("GET /ws/viewer", s.feed)
	}
	if s.progress != nil {
		mux.HandleFunc("GET /api/progress/report", s.handleProgressReport)
	}
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	if s.cache != nil {
		if err := s.cache.HealthCheck(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleTree loads and returns the full course tree. A missing course id
// is an explicit not-found; partial subject/module failures have already
// degraded to omission inside the loader.
func (s *server) handleTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	snap, err := s.loader.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, contentapi.ErrNotFound) {
			writeError(w, http.StatusNotFound, "curso no encontrado")
			return
		}
		slog.Error("tree load failed", "curso", id, "error", err)
		writeError(w, http.StatusBadGateway, "content source unavailable")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleResolve runs the deep-link resolver against the current snapshot
// and reports the resulting expansion set and highlight target.
func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	loc := deeplink.Location{
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
	}
	target := loc.DeepLinkTarget()

	found := s.resolver.Resolve(target, s.loader.Snapshot())

	writeJSON(w, http.StatusOK, map[string]any{
		"encontrado": found,
		"modulo":     target,
		"expandidas": s.resolver.Expanded(),
		"destacado":  s.resolver.Highlight(),
	})
}

func (s *server) handleContinue(w http.ResponseWriter, r *http.Request) {
	target := s.tracker.Resolve(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"target": target,
		"usable": target.Usable(),
	})
}

func (s *server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "url parameter is required")
		return
	}

	m := media.Normalize(raw)
	writeJSON(w, http.StatusOK, map[string]any{
		"kind":       m.Kind.String(),
		"target":     m.Target,
		"embeddable": m.Embeddable(),
		"viewUrl":    m.ViewURL(),
		"hints":      m.Hints(),
	})
}

type viewerOpenRequest struct {
	Kind     string        `json:"kind"` // "video" or "documento"
	ModuleID string        `json:"moduloId"`
	Items    []viewer.Item `json:"items"`
	Index    int           `json:"index"`
}

func (s *server) handleViewerOpen(w http.ResponseWriter, r *http.Request) {
	var req viewerOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	switch req.Kind {
	case "documento":
		s.session.OpenDocument(req.ModuleID, req.Items[0])
	default:
		s.session.OpenVideo(req.ModuleID, req.Items, req.Index)
	}

	s.writeViewerState(w)
}

type viewerNavRequest struct {
	Direction string `json:"direction"` // "next" or "prev"
}

func (s *server) handleViewerNav(w http.ResponseWriter, r *http.Request) {
	var req viewerNavRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch req.Direction {
	case "next":
		s.session.Next()
	case "prev":
		s.session.Prev()
	default:
		writeError(w, http.StatusBadRequest, "direction must be next or prev")
		return
	}

	s.writeViewerState(w)
}

type viewerCompleteRequest struct {
	Usuario string `json:"usuario"`
}

func (s *server) handleViewerComplete(w http.ResponseWriter, r *http.Request) {
	var req viewerCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.session.ToggleCompleted(r.Context(), req.Usuario); err != nil {
		slog.Warn("progress notification failed", "usuario", req.Usuario, "error", err)
	}
	s.writeViewerState(w)
}

func (s *server) handleViewerClose(w http.ResponseWriter, r *http.Request) {
	s.session.Close()
	s.writeViewerState(w)
}

func (s *server) handleViewerState(w http.ResponseWriter, r *http.Request) {
	s.writeViewerState(w)
}

func (s *server) writeViewerState(w http.ResponseWriter) {
	item, index := s.session.Current()
	m := s.session.Media()

	resp := map[string]any{
		"state":      s.session.State().String(),
		"item":       item,
		"index":      index,
		"target":     m.Target,
		"embeddable": m.Embeddable(),
		"completed":  s.session.Completed(),
		"fullscreen": s.session.Fullscreen(),
	}
	if external := s.opener.Take(); external != "" {
		resp["openExternal"] = external
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleProgressReport streams a user's completion state as xlsx.
func (s *server) handleProgressReport(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("usuario")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "usuario parameter is required")
		return
	}

	rows, err := s.progress.CompletedByUser(r.Context(), userID)
	if err != nil {
		slog.Error("progress report failed", "usuario", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "report unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="progreso.xlsx"`)
	if err := progress.WriteReport(w, rows); err != nil {
		slog.Error("progress report write failed", "usuario", userID, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
