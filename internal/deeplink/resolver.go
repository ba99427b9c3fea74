// Package deeplink resolves "jump to module" navigation requests against
// the loaded course tree: it expands the owning subject and schedules a
// scroll-and-highlight on the target module once its section has mounted.
package deeplink

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/capassotech/epefi-cursos/internal/content"
)

const (
	// defaultMountDelay gives a freshly expanded section time to mount
	// before scrolling to an element inside it.
	defaultMountDelay = 500 * time.Millisecond
	// defaultHighlightDwell is how long the jumped-to module stays marked.
	defaultHighlightDwell = 3 * time.Second
)

// Location is the current navigation location: path plus raw query string.
type Location struct {
	Path     string
	RawQuery string
}

// DeepLinkTarget extracts the target module id from the query. Both the
// "modulo" key and its legacy "module" alias are accepted, with "modulo"
// winning when both are present.
func (l Location) DeepLinkTarget() string {
	q, err := url.ParseQuery(l.RawQuery)
	if err != nil {
		return ""
	}
	if v := q.Get("modulo"); v != "" {
		return v
	}
	return q.Get("module")
}

// Scroller is the view-layer collaborator that brings a module's rendered
// element into view (centered in the viewport).
type Scroller interface {
	ScrollTo(moduleID string)
}

// Resolver owns the subject Expansion Set and the module Highlight Token.
// Expansion is additive and persists across highlight expiry; at most one
// module is highlighted at a time. A fresh resolution supersedes pending
// timers from earlier ones.
type Resolver struct {
	scroller       Scroller
	mountDelay     time.Duration
	highlightDwell time.Duration

	mu        sync.Mutex
	expanded  map[string]struct{}
	highlight string
	gen       int
	resolved  string // last target successfully resolved, for short-circuit
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithMountDelay overrides the section-mount delay.
func WithMountDelay(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.mountDelay = d }
}

// WithHighlightDwell overrides the highlight dwell time.
func WithHighlightDwell(d time.Duration) ResolverOption {
	return func(r *Resolver) { r.highlightDwell = d }
}

// NewResolver creates a resolver that scrolls via the given Scroller.
func NewResolver(scroller Scroller, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		scroller:       scroller,
		mountDelay:     defaultMountDelay,
		highlightDwell: defaultHighlightDwell,
		expanded:       make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve attempts to resolve target against the snapshot. An unknown or
// empty target is a no-op (the caller retries when the tree grows). On a
// match the owning subject is expanded and scroll+highlight is scheduled.
// Returns true when the target was found.
func (r *Resolver) Resolve(target string, snap content.Snapshot) bool {
	if target == "" {
		return false
	}

	r.mu.Lock()
	if r.resolved == target {
		// Already resolved this target; expansion and highlight state
		// stand as they are.
		r.mu.Unlock()
		return true
	}
	r.mu.Unlock()

	mod, ok := snap.Module(target)
	if !ok {
		return false
	}

	r.mu.Lock()
	r.expanded[mod.SubjectID] = struct{}{}
	r.gen++
	gen := r.gen
	r.resolved = target
	r.mu.Unlock()

	time.AfterFunc(r.mountDelay, func() { r.fireScroll(gen, target) })
	return true
}

func (r *Resolver) fireScroll(gen int, target string) {
	r.mu.Lock()
	if gen != r.gen {
		r.mu.Unlock()
		return // superseded by a newer resolution
	}
	r.highlight = target
	r.mu.Unlock()

	if r.scroller != nil {
		r.scroller.ScrollTo(target)
	}

	time.AfterFunc(r.highlightDwell, func() { r.clearHighlight(gen) })
}

func (r *Resolver) clearHighlight(gen int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return // a newer highlight owns the token now
	}
	r.highlight = ""
}

// Highlight returns the currently highlighted module id, if any.
func (r *Resolver) Highlight() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highlight
}

// Expand adds a subject to the expansion set (user toggle).
func (r *Resolver) Expand(subjectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expanded[subjectID] = struct{}{}
}

// Collapse removes a subject from the expansion set (user toggle).
func (r *Resolver) Collapse(subjectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.expanded, subjectID)
}

// IsExpanded reports whether a subject is expanded.
func (r *Resolver) IsExpanded(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.expanded[subjectID]
	return ok
}

// Expanded returns the expansion set, sorted for stable output.
func (r *Resolver) Expanded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.expanded))
	for id := range r.expanded {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Watch drives the reactive loop: the resolver re-evaluates on every
// navigation-location change and every tree snapshot update, so a target
// that does not exist yet resolves as soon as its section loads.
func (r *Resolver) Watch(ctx context.Context, locations <-chan Location, snapshots <-chan content.Snapshot, initial content.Snapshot) {
	snap := initial
	var target string

	for {
		select {
		case <-ctx.Done():
			return
		case loc, ok := <-locations:
			if !ok {
				return
			}
			target = loc.DeepLinkTarget()
			r.Resolve(target, snap)
		case s, ok := <-snapshots:
			if !ok {
				return
			}
			snap = s
			r.Resolve(target, snap)
		}
	}
}
