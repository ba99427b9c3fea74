package contentapi

import (
	"context"
	"fmt"
	"sync"
)

// MockSource is a test double for content sources. Entities are added up
// front; Fail injects per-id errors to exercise partial-failure paths.
type MockSource struct {
	mu       sync.Mutex
	courses  map[string]Course
	subjects map[string]Subject
	modules  map[string]Module
	fail     map[string]error
	calls    int
}

// NewMockSource creates an empty mock source.
func NewMockSource() *MockSource {
	return &MockSource{
		courses:  make(map[string]Course),
		subjects: make(map[string]Subject),
		modules:  make(map[string]Module),
		fail:     make(map[string]error),
	}
}

// AddCourse registers a course.
func (m *MockSource) AddCourse(c Course) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses[c.ID] = c
}

// AddSubject registers a subject.
func (m *MockSource) AddSubject(s Subject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[s.ID] = s
}

// AddModule registers a module.
func (m *MockSource) AddModule(mod Module) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modules[mod.ID] = mod
}

// Fail makes every fetch of the given id return err.
func (m *MockSource) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[id] = err
}

// Calls returns the number of fetches served so far.
func (m *MockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockSource) Course(_ context.Context, id string) (Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.fail[id]; err != nil {
		return Course{}, err
	}
	c, ok := m.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("curso %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (m *MockSource) Subject(_ context.Context, id string) (Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.fail[id]; err != nil {
		return Subject{}, err
	}
	s, ok := m.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("materia %s: %w", id, ErrNotFound)
	}
	return s, nil
}

func (m *MockSource) Module(_ context.Context, id string) (Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if err := m.fail[id]; err != nil {
		return Module{}, err
	}
	mod, ok := m.modules[id]
	if !ok {
		return Module{}, fmt.Errorf("modulo %s: %w", id, ErrNotFound)
	}
	return mod, nil
}
