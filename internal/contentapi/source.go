// Package contentapi provides access to the remote course content API.
//
// The API exposes three independent entity endpoints (curso, materia,
// modulo). Responses are loosely shaped: an endpoint may answer with a
// single object or a one-element array, optional fields come and go, and
// timestamps arrive in several literal forms. Sources normalize all of
// that before anything else sees it.
package contentapi

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that an entity id has no matching record.
var ErrNotFound = errors.New("entity not found")

// ErrMalformed reports that an entity payload failed structural validation.
var ErrMalformed = errors.New("malformed entity payload")

// Course is the top level of the content hierarchy.
type Course struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"titulo" yaml:"titulo"`
	Description string        `json:"descripcion" yaml:"descripcion"`
	SubjectIDs  []string      `json:"materias" yaml:"materias"`
	Documents   []DocumentRef `json:"documentos" yaml:"documentos"`
}

// Subject ("materia") groups an ordered list of modules inside a course.
type Subject struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"nombre" yaml:"nombre"`
	Description string   `json:"descripcion" yaml:"descripcion"`
	ModuleIDs   []string `json:"modulos" yaml:"modulos"`
}

// Module ("modulo") is a single learning unit. Video and Document are raw
// external references; classification happens in the media package.
type Module struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"titulo" yaml:"titulo"`
	Description string `json:"descripcion" yaml:"descripcion"`
	VideoURL    string `json:"video" yaml:"video"`
	DocumentURL string `json:"documento" yaml:"documento"`
	Thumbnail   string `json:"miniatura" yaml:"miniatura"`
	SubjectID   string `json:"id_materia" yaml:"id_materia"`
}

// DocumentRef is a supporting document attached to a course. The
// last-updated field is kept raw because the API emits it in several
// shapes; use UpdatedAt to read it.
type DocumentRef struct {
	URL        string `json:"url" yaml:"url"`
	UpdatedRaw any    `json:"fecha_actualizacion" yaml:"fecha_actualizacion"`
}

// UpdatedAt returns the document's last-updated time, if the raw value
// parses as any of the recognized timestamp shapes.
func (d DocumentRef) UpdatedAt() (time.Time, bool) {
	return ParseTimestamp(d.UpdatedRaw)
}

// Source is the interface all content backends must implement. A Source
// returns ErrNotFound when an id has no record; any other error is a
// transport or payload failure.
type Source interface {
	Course(ctx context.Context, id string) (Course, error)
	Subject(ctx context.Context, id string) (Subject, error)
	Module(ctx context.Context, id string) (Module, error)
}
