package contentapi_test

import (
	"context"
	"errors"
	"testing"

	"github.com/capassotech/epefi-cursos/internal/contentapi"
)

func TestChain_FirstSourceWins(t *testing.T) {
	primary := contentapi.NewMockSource()
	primary.AddCourse(contentapi.Course{ID: "c1", Title: "remoto"})
	fallback := contentapi.NewMockSource()
	fallback.AddCourse(contentapi.Course{ID: "c1", Title: "local"})

	chain := contentapi.NewChain(primary, fallback)
	c, err := chain.Course(context.Background(), "c1")
	if err != nil {
		t.Fatalf("Course: %v", err)
	}
	if c.Title != "remoto" {
		t.Errorf("Title = %q, want the primary's answer", c.Title)
	}
	if fallback.Calls() != 0 {
		t.Errorf("fallback was consulted %d times", fallback.Calls())
	}
}

func TestChain_NotFoundFallsThrough(t *testing.T) {
	primary := contentapi.NewMockSource()
	fallback := contentapi.NewMockSource()
	fallback.AddModule(contentapi.Module{ID: "m1", Title: "local"})

	chain := contentapi.NewChain(primary, fallback)
	m, err := chain.Module(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Module: %v", err)
	}
	if m.Title != "local" {
		t.Errorf("Title = %q", m.Title)
	}
}

func TestChain_TransportErrorFallsThrough(t *testing.T) {
	primary := contentapi.NewMockSource()
	primary.Fail("s1", errors.New("connection refused"))
	fallback := contentapi.NewMockSource()
	fallback.AddSubject(contentapi.Subject{ID: "s1", Name: "Matrices"})

	chain := contentapi.NewChain(primary, fallback)
	s, err := chain.Subject(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Subject: %v", err)
	}
	if s.Name != "Matrices" {
		t.Errorf("Name = %q", s.Name)
	}
}

func TestChain_AllMissReturnsLastError(t *testing.T) {
	chain := contentapi.NewChain(contentapi.NewMockSource(), contentapi.NewMockSource())
	_, err := chain.Course(context.Background(), "c9")
	if !errors.Is(err, contentapi.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
