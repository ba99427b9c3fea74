package viewer

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// SurfaceEvent is one signal from the render surface. Type is either a
// viewer signal ("load-success", "load-error") or any of the
// vendor-prefixed fullscreen-change event names.
type SurfaceEvent struct {
	Type   string `json:"type"`
	Active bool   `json:"active,omitempty"`
}

// Feed receives render-surface events over a websocket and dispatches
// them onto the viewer session: load errors trigger the external-open
// fallback, fullscreen changes keep the sub-state in sync.
type Feed struct {
	session *Session
}

// NewFeed creates a feed bound to the given session.
func NewFeed(session *Session) *Feed {
	return &Feed{session: session}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("viewer feed accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	for {
		var ev SurfaceEvent
		if err := wsjson.Read(r.Context(), conn, &ev); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				conn.Close(websocket.StatusNormalClosure, "")
				return
			}
			if r.Context().Err() != nil {
				return
			}
			slog.Warn("viewer feed read failed", "error", err)
			return
		}
		f.Dispatch(r.Context(), ev)
	}
}

// Dispatch applies one surface event to the session.
func (f *Feed) Dispatch(_ context.Context, ev SurfaceEvent) {
	switch {
	case ev.Type == "load-success":
		// Nothing to do; the embed rendered.
	case ev.Type == "load-error":
		f.session.RenderFailed()
	case IsFullscreenChangeEvent(ev.Type):
		f.session.HandleFullscreenChange(ev.Active)
	default:
		slog.Debug("ignoring unknown surface event", "type", ev.Type)
	}
}
