package content

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/capassotech/epefi-cursos/internal/contentapi"
)

const defaultMaxInFlight = 8

// Phase reports which depths of the tree are still loading, so a view
// layer can render skeleton placeholders per level instead of waiting
// for the whole tree.
type Phase struct {
	Course   bool `json:"curso"`
	Subjects bool `json:"materias"`
	Modules  bool `json:"modulos"`
}

// Loader fetches a course tree: the course, then its subjects in
// parallel, then every declared module in one parallel fan-out across
// all subjects. Per-id failures are omitted rather than aborting the
// load. Re-running Load replaces the published snapshot wholesale; a
// load that was superseded mid-flight never clobbers a newer one.
type Loader struct {
	source      contentapi.Source
	maxInFlight int

	mu     sync.RWMutex
	snap   Snapshot
	phase  Phase
	gen    int
	closed bool
	subs   map[int]chan Snapshot
	nextID int
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithMaxInFlight caps concurrent entity fetches per fan-out.
func WithMaxInFlight(n int) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxInFlight = n
		}
	}
}

// NewLoader creates a loader over the given content source.
func NewLoader(source contentapi.Source, opts ...LoaderOption) *Loader {
	l := &Loader{
		source:      source,
		maxInFlight: defaultMaxInFlight,
		subs:        make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Snapshot returns the most recently published snapshot.
func (l *Loader) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Phase returns the current loading-phase flags.
func (l *Loader) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// Subscribe returns a channel receiving snapshot updates as the tree
// grows (subjects committed, then modules committed). The cancel func
// must be called when done.
func (l *Loader) Subscribe() (<-chan Snapshot, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan Snapshot, 4)
	l.subs[id] = ch

	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
}

// Close discards the loader. In-flight loads finish but publish nothing.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.gen++ // invalidate in-flight loads
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}

// Load fetches the full tree for courseID and publishes it. Returns
// contentapi.ErrNotFound (wrapped) when the course id has no record.
func (l *Loader) Load(ctx context.Context, courseID string) (Snapshot, error) {
	gen := l.begin()

	course, err := l.source.Course(ctx, courseID)
	if err != nil {
		l.finish(gen)
		return Snapshot{}, fmt.Errorf("loading curso %s: %w", courseID, err)
	}

	snap := Snapshot{Course: course, Modules: map[string][]contentapi.Module{}}
	l.commit(gen, snap, Phase{Subjects: true, Modules: true})

	snap.Subjects = l.fetchSubjects(ctx, course.SubjectIDs)
	l.commit(gen, snap, Phase{Modules: true})

	snap.Modules = l.fetchModules(ctx, snap.Subjects)
	l.commit(gen, snap, Phase{})

	return snap, nil
}

// fetchSubjects fans out one fetch per subject id, bounded by
// maxInFlight, with all-settled semantics: failures are logged and
// omitted. Declared course order is preserved.
func (l *Loader) fetchSubjects(ctx context.Context, ids []string) []contentapi.Subject {
	results := make([]*contentapi.Subject, len(ids))

	var wg sync.WaitGroup
	sem := make(chan struct{}, l.maxInFlight)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			s, err := l.source.Subject(ctx, id)
			if err != nil {
				slog.Warn("materia fetch failed, omitting", "id", id, "error", err)
				return
			}
			results[i] = &s
		}(i, id)
	}
	wg.Wait()

	subjects := make([]contentapi.Subject, 0, len(ids))
	for _, s := range results {
		if s != nil {
			subjects = append(subjects, *s)
		}
	}
	return subjects
}

// fetchModules flattens every subject's declared module ids into a
// single parallel fan-out. Each fetched module is attributed to its
// owning subject via id_materia; modules whose owner is not in the
// loaded subject set are orphans and are excluded.
func (l *Loader) fetchModules(ctx context.Context, subjects []contentapi.Subject) map[string][]contentapi.Module {
	type declared struct {
		id    string
		order int
	}
	var ids []declared
	order := 0
	known := make(map[string]bool, len(subjects))
	for _, s := range subjects {
		known[s.ID] = true
		for _, id := range s.ModuleIDs {
			ids = append(ids, declared{id: id, order: order})
			order++
		}
	}

	type fetched struct {
		mod   contentapi.Module
		order int
	}
	results := make([]*fetched, len(ids))

	var wg sync.WaitGroup
	sem := make(chan struct{}, l.maxInFlight)
	for i, d := range ids {
		wg.Add(1)
		go func(i int, d declared) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m, err := l.source.Module(ctx, d.id)
			if err != nil {
				slog.Warn("modulo fetch failed, omitting", "id", d.id, "error", err)
				return
			}
			results[i] = &fetched{mod: m, order: d.order}
		}(i, d)
	}
	wg.Wait()

	grouped := make(map[string][]fetched)
	for _, r := range results {
		if r == nil {
			continue
		}
		if !known[r.mod.SubjectID] {
			slog.Warn("orphaned modulo excluded",
				"id", r.mod.ID,
				"id_materia", r.mod.SubjectID,
			)
			continue
		}
		grouped[r.mod.SubjectID] = append(grouped[r.mod.SubjectID], *r)
	}

	modules := make(map[string][]contentapi.Module, len(grouped))
	for sid, mods := range grouped {
		sort.Slice(mods, func(i, j int) bool { return mods[i].order < mods[j].order })
		out := make([]contentapi.Module, len(mods))
		for i, m := range mods {
			out[i] = m.mod
		}
		modules[sid] = out
	}
	return modules
}

// begin starts a new load generation, superseding any in-flight load.
func (l *Loader) begin() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.phase = Phase{Course: true, Subjects: true, Modules: true}
	return l.gen
}

// commit publishes a snapshot if the generation is still current.
func (l *Loader) commit(gen int, snap Snapshot, phase Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.gen {
		return // superseded or torn down; discard silently
	}
	l.snap = snap
	l.phase = phase
	for _, ch := range l.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// finish clears phase flags for a load that errored out.
func (l *Loader) finish(gen int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || gen != l.gen {
		return
	}
	l.phase = Phase{}
}
