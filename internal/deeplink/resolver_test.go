package deeplink_test

import (
	"sync"
	"testing"
	"time"

	"github.com/capassotech/epefi-cursos/internal/content"
	"github.com/capassotech/epefi-cursos/internal/contentapi"
	"github.com/capassotech/epefi-cursos/internal/deeplink"
)

const (
	testMountDelay = 10 * time.Millisecond
	testDwell      = 40 * time.Millisecond
)

type recordingScroller struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingScroller) ScrollTo(moduleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, moduleID)
}

func (s *recordingScroller) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func testSnapshot() content.Snapshot {
	return content.Snapshot{
		Subjects: []contentapi.Subject{
			{ID: "s1", ModuleIDs: []string{"m1", "m2"}},
			{ID: "s2", ModuleIDs: []string{"m3"}},
		},
		Modules: map[string][]contentapi.Module{
			"s1": {{ID: "m1", SubjectID: "s1"}, {ID: "m2", SubjectID: "s1"}},
			"s2": {{ID: "m3", SubjectID: "s2"}},
		},
	}
}

func newTestResolver(scroller deeplink.Scroller) *deeplink.Resolver {
	return deeplink.NewResolver(scroller,
		deeplink.WithMountDelay(testMountDelay),
		deeplink.WithHighlightDwell(testDwell),
	)
}

func TestLocation_DeepLinkTarget(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		want     string
	}{
		{"modulo key", "modulo=m2", "m2"},
		{"legacy module key", "module=m2", "m2"},
		{"modulo wins over alias", "modulo=m1&module=m2", "m1"},
		{"neither", "tab=docs", ""},
		{"bad query", "%zz", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := deeplink.Location{Path: "/cursos/c1", RawQuery: tt.rawQuery}
			if got := loc.DeepLinkTarget(); got != tt.want {
				t.Errorf("DeepLinkTarget() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_ExpandsAndHighlights(t *testing.T) {
	scroller := &recordingScroller{}
	r := newTestResolver(scroller)

	if !r.Resolve("m2", testSnapshot()) {
		t.Fatal("Resolve(m2) = false, want true")
	}

	if !r.IsExpanded("s1") {
		t.Error("owning subject s1 should be expanded")
	}
	if got := r.Expanded(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("Expanded() = %v, want [s1]", got)
	}
	if r.Highlight() != "" {
		t.Error("highlight should not be set before the mount delay")
	}

	time.Sleep(2 * testMountDelay)

	if got := scroller.Calls(); len(got) != 1 || got[0] != "m2" {
		t.Errorf("scroll calls = %v, want [m2]", got)
	}
	if r.Highlight() != "m2" {
		t.Errorf("Highlight() = %q, want m2", r.Highlight())
	}
}

func TestResolver_HighlightExpires(t *testing.T) {
	r := newTestResolver(&recordingScroller{})

	r.Resolve("m2", testSnapshot())
	time.Sleep(2 * testMountDelay)

	if r.Highlight() != "m2" {
		t.Fatalf("Highlight() = %q, want m2", r.Highlight())
	}

	time.Sleep(testDwell + testMountDelay)

	if r.Highlight() != "" {
		t.Errorf("Highlight() = %q, want cleared after dwell", r.Highlight())
	}
	if !r.IsExpanded("s1") {
		t.Error("expansion must persist across highlight expiry")
	}
}

func TestResolver_UnknownTargetIsNoOp(t *testing.T) {
	scroller := &recordingScroller{}
	r := newTestResolver(scroller)

	if r.Resolve("missing", testSnapshot()) {
		t.Fatal("Resolve(missing) = true, want false")
	}
	if len(r.Expanded()) != 0 {
		t.Errorf("Expanded() = %v, want empty", r.Expanded())
	}

	time.Sleep(2 * testMountDelay)
	if len(scroller.Calls()) != 0 {
		t.Errorf("scroll calls = %v, want none", scroller.Calls())
	}
}

func TestResolver_RetriesWhenTreeGrows(t *testing.T) {
	r := newTestResolver(&recordingScroller{})

	// First attempt against a tree that has not loaded m3's subject yet.
	partial := content.Snapshot{
		Subjects: []contentapi.Subject{{ID: "s1"}},
		Modules:  map[string][]contentapi.Module{"s1": {{ID: "m1", SubjectID: "s1"}}},
	}
	if r.Resolve("m3", partial) {
		t.Fatal("Resolve should fail against the partial tree")
	}

	if !r.Resolve("m3", testSnapshot()) {
		t.Fatal("Resolve should succeed once the tree contains m3")
	}
	if !r.IsExpanded("s2") {
		t.Error("s2 should be expanded after the retry")
	}
}

func TestResolver_IsIdempotent(t *testing.T) {
	scroller := &recordingScroller{}
	r := newTestResolver(scroller)

	r.Resolve("m2", testSnapshot())
	time.Sleep(2 * testMountDelay)
	r.Resolve("m2", testSnapshot())
	time.Sleep(2 * testMountDelay)

	if got := scroller.Calls(); len(got) != 1 {
		t.Errorf("scroll calls = %v, want exactly one", got)
	}
	if got := r.Expanded(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("Expanded() = %v, want [s1]", got)
	}
}

func TestResolver_NewTargetSupersedesPendingHighlight(t *testing.T) {
	r := newTestResolver(&recordingScroller{})

	r.Resolve("m2", testSnapshot())
	time.Sleep(2 * testMountDelay)
	if r.Highlight() != "m2" {
		t.Fatalf("Highlight() = %q, want m2", r.Highlight())
	}

	// Jump to a different module before m2's dwell expires.
	r.Resolve("m3", testSnapshot())
	time.Sleep(2 * testMountDelay)

	if r.Highlight() != "m3" {
		t.Errorf("Highlight() = %q, want m3 (superseded, not stacked)", r.Highlight())
	}

	// m2's old clear timer firing must not wipe m3's highlight early.
	if !r.IsExpanded("s1") || !r.IsExpanded("s2") {
		t.Errorf("Expanded() = %v, want both s1 and s2 (expansion is additive)", r.Expanded())
	}

	time.Sleep(testDwell + testMountDelay)
	if r.Highlight() != "" {
		t.Errorf("Highlight() = %q, want cleared after m3's own dwell", r.Highlight())
	}
}

func TestResolver_UserCollapseIsIndependent(t *testing.T) {
	r := newTestResolver(&recordingScroller{})

	r.Expand("s1")
	r.Expand("s2")
	r.Collapse("s1")

	if r.IsExpanded("s1") {
		t.Error("s1 should be collapsed")
	}
	if !r.IsExpanded("s2") {
		t.Error("s2 should stay expanded")
	}
}

func TestResolver_DeepLinkScenario(t *testing.T) {
	// Course with subject s1 owning m1,m2; navigating with ?modulo=m2
	// expands {s1}, highlights m2, and the highlight empties after the
	// dwell time.
	scroller := &recordingScroller{}
	r := newTestResolver(scroller)

	loc := deeplink.Location{Path: "/cursos/c1", RawQuery: "modulo=m2"}
	r.Resolve(loc.DeepLinkTarget(), testSnapshot())

	time.Sleep(2 * testMountDelay)
	if got := r.Expanded(); len(got) != 1 || got[0] != "s1" {
		t.Fatalf("Expanded() = %v, want [s1]", got)
	}
	if r.Highlight() != "m2" {
		t.Fatalf("Highlight() = %q, want m2", r.Highlight())
	}

	time.Sleep(testDwell + testMountDelay)
	if r.Highlight() != "" {
		t.Errorf("Highlight() = %q, want empty after dwell", r.Highlight())
	}
}
