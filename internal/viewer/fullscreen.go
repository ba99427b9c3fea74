package viewer

import "context"

// FullscreenEventNames is the set of equivalent fullscreen-change event
// names across browser engines. The render surface may report any of
// them; they all mean the same transition.
var FullscreenEventNames = []string{
	"fullscreenchange",
	"webkitfullscreenchange",
	"mozfullscreenchange",
	"MSFullscreenChange",
}

// IsFullscreenChangeEvent reports whether name is one of the recognized
// fullscreen-change event names.
func IsFullscreenChangeEvent(name string) bool {
	for _, n := range FullscreenEventNames {
		if n == name {
			return true
		}
	}
	return false
}

// FullscreenController abstracts the platform fullscreen capability
// behind one ownership boundary, so vendor-prefixed request/exit APIs
// never leak into the state machine. The actual sub-state only moves on
// change events, which keeps the display in sync even when fullscreen is
// toggled by a platform gesture instead of the control.
type FullscreenController interface {
	Enter(ctx context.Context) error
	Exit(ctx context.Context) error
}

// NopFullscreen is a controller for surfaces without fullscreen support.
type NopFullscreen struct{}

func (NopFullscreen) Enter(context.Context) error { return nil }
func (NopFullscreen) Exit(context.Context) error  { return nil }

// RequestFullscreenToggle asks the controller for the opposite of the
// session's current fullscreen sub-state. The state itself flips when
// the surface reports the change event back.
func (s *Session) RequestFullscreenToggle(ctx context.Context, fc FullscreenController) error {
	if fc == nil {
		return nil
	}
	if s.Fullscreen() {
		return fc.Exit(ctx)
	}
	return fc.Enter(ctx)
}
