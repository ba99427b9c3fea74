package contentapi

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// StaticSource serves entities from a directory of YAML files. It exists
// for local development and demo deployments without the remote API.
// Files are matched by suffix: *.curso.yaml, *.materia.yaml, *.modulo.yaml.
type StaticSource struct {
	rootDir  string
	courses  map[string]Course
	subjects map[string]Subject
	modules  map[string]Module
	mu       sync.RWMutex
}

// NewStaticSource creates a static source and loads all content under rootDir.
func NewStaticSource(rootDir string) (*StaticSource, error) {
	s := &StaticSource{
		rootDir:  rootDir,
		courses:  make(map[string]Course),
		subjects: make(map[string]Subject),
		modules:  make(map[string]Module),
	}

	if err := s.loadAll(); err != nil {
		return nil, fmt.Errorf("loading static content: %w", err)
	}

	slog.Info("static content loaded",
		"cursos", len(s.courses),
		"materias", len(s.subjects),
		"modulos", len(s.modules),
	)
	return s, nil
}

func (s *StaticSource) Course(_ context.Context, id string) (Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.courses[id]
	if !ok {
		return Course{}, fmt.Errorf("curso %s: %w", id, ErrNotFound)
	}
	return c, nil
}

func (s *StaticSource) Subject(_ context.Context, id string) (Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.subjects[id]
	if !ok {
		return Subject{}, fmt.Errorf("materia %s: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *StaticSource) Module(_ context.Context, id string) (Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[id]
	if !ok {
		return Module{}, fmt.Errorf("modulo %s: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *StaticSource) loadAll() error {
	return filepath.Walk(s.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".curso.yaml"):
			return loadEntityFile(path, func(c Course) bool { return c.ID != "" }, s.putCourse)
		case strings.HasSuffix(path, ".materia.yaml"):
			return loadEntityFile(path, func(m Subject) bool { return m.ID != "" }, s.putSubject)
		case strings.HasSuffix(path, ".modulo.yaml"):
			return loadEntityFile(path, func(m Module) bool { return m.ID != "" }, s.putModule)
		}
		return nil
	})
}

func loadEntityFile[T any](path string, valid func(T) bool, put func(T)) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var entity T
	if err := yaml.Unmarshal(data, &entity); err != nil {
		slog.Warn("skipping invalid entity YAML", "path", path, "error", err)
		return nil
	}
	if !valid(entity) {
		slog.Warn("skipping entity YAML without id", "path", path)
		return nil
	}

	put(entity)
	return nil
}

func (s *StaticSource) putCourse(c Course) {
	s.mu.Lock()
	s.courses[c.ID] = c
	s.mu.Unlock()
}

func (s *StaticSource) putSubject(m Subject) {
	s.mu.Lock()
	s.subjects[m.ID] = m
	s.mu.Unlock()
}

func (s *StaticSource) putModule(m Module) {
	s.mu.Lock()
	s.modules[m.ID] = m
	s.mu.Unlock()
}
