package continuation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/xeipuuv/gojsonschema"
)

// Recognized store keys. lastViewedClass is written every time a module
// item is viewed; lastCourseAccess every time a course page opens. Both
// are written elsewhere in the application and are read-only here.
const (
	KeyLastViewedClass  = "lastViewedClass"
	KeyLastCourseAccess = "lastCourseAccess"
)

// DefaultPath is the generic course list, which the navigation UI treats
// as "no usable continuation target".
const DefaultPath = "/cursos"

// Target is a resolved continuation destination.
type Target struct {
	Path        string `json:"path"`
	CourseTitle string `json:"cursoTitulo,omitempty"`
	ItemTitle   string `json:"itemTitulo,omitempty"`
}

// Usable reports whether the target points anywhere more specific than
// the course list.
func (t Target) Usable() bool {
	return t.Path != "" && t.Path != DefaultPath
}

// lastViewedRecord is the persisted shape of lastViewedClass.
type lastViewedRecord struct {
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
	ModuleID    string `json:"moduleId"`
	ItemIndex   *int   `json:"itemIndex"`
	Title       string `json:"title"`
	Path        string `json:"path"`
}

// lastCourseRecord is the persisted shape of lastCourseAccess.
type lastCourseRecord struct {
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
	Path        string `json:"path"`
}

const (
	lastViewedSchema = `{
		"type": "object",
		"required": ["courseId", "moduleId"],
		"properties": {
			"courseId": {"type": "string", "minLength": 1},
			"moduleId": {"type": "string", "minLength": 1},
			"itemIndex": {"type": "integer", "minimum": 0},
			"courseTitle": {"type": "string"},
			"title": {"type": "string"},
			"path": {"type": "string"}
		}
	}`

	lastCourseSchema = `{
		"type": "object",
		"required": ["courseId"],
		"properties": {
			"courseId": {"type": "string", "minLength": 1},
			"courseTitle": {"type": "string"},
			"path": {"type": "string"}
		}
	}`
)

var (
	compiledLastViewedSchema = mustCompileRecordSchema(lastViewedSchema)
	compiledLastCourseSchema = mustCompileRecordSchema(lastCourseSchema)
)

func mustCompileRecordSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("continuation: bad record schema: %v", err))
	}
	return s
}

// Tracker resolves the continuation target from the persisted store.
type Tracker struct {
	store Store
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Resolve derives the navigation target: the last viewed module if its
// record is structurally valid, else the last accessed course, else the
// generic course list. Corrupt records are logged and skipped, never
// surfaced.
func (t *Tracker) Resolve(ctx context.Context) Target {
	if rec, ok := t.readViewed(ctx); ok {
		path := rec.Path
		if path == "" {
			path = buildModulePath(rec.CourseID, rec.CourseTitle, rec.ModuleID, rec.ItemIndex)
		}
		return Target{Path: path, CourseTitle: rec.CourseTitle, ItemTitle: rec.Title}
	}

	if rec, ok := t.readCourse(ctx); ok {
		path := rec.Path
		if path == "" {
			path = buildCoursePath(rec.CourseID, rec.CourseTitle)
		}
		return Target{Path: path, CourseTitle: rec.CourseTitle}
	}

	return Target{Path: DefaultPath}
}

func (t *Tracker) readViewed(ctx context.Context) (lastViewedRecord, bool) {
	var rec lastViewedRecord
	if !t.readRecord(ctx, KeyLastViewedClass, compiledLastViewedSchema, &rec) {
		return lastViewedRecord{}, false
	}
	return rec, true
}

func (t *Tracker) readCourse(ctx context.Context) (lastCourseRecord, bool) {
	var rec lastCourseRecord
	if !t.readRecord(ctx, KeyLastCourseAccess, compiledLastCourseSchema, &rec) {
		return lastCourseRecord{}, false
	}
	return rec, true
}

func (t *Tracker) readRecord(ctx context.Context, key string, schema *gojsonschema.Schema, out any) bool {
	raw, ok, err := t.store.Get(ctx, key)
	if err != nil {
		slog.Warn("continuation record read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil || !result.Valid() {
		slog.Warn("corrupt continuation record, skipping", "key", key)
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		slog.Warn("corrupt continuation record, skipping", "key", key, "error", err)
		return false
	}
	return true
}

// Watch re-resolves whenever either continuation key changes and sends
// the fresh target. The returned channel closes when ctx is done.
func (t *Tracker) Watch(ctx context.Context) <-chan Target {
	out := make(chan Target, 1)
	changes, cancel := t.store.Subscribe(ctx)

	go func() {
		defer cancel()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-changes:
				if !ok {
					return
				}
				if c.Key != KeyLastViewedClass && c.Key != KeyLastCourseAccess {
					continue
				}
				select {
				case out <- t.Resolve(ctx):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

// buildCoursePath returns the course-detail path, with a slug segment
// when a title is known: /cursos/{id}/{slug}.
func buildCoursePath(courseID, title string) string {
	path := DefaultPath + "/" + url.PathEscape(courseID)
	if slug := Slug(title); slug != "" {
		path += "/" + slug
	}
	return path
}

// buildModulePath appends the deep-link query to the course-detail path:
// the module id rides on the "modulo" key the resolver understands.
func buildModulePath(courseID, courseTitle, moduleID string, itemIndex *int) string {
	path := buildCoursePath(courseID, courseTitle) + "?modulo=" + url.QueryEscape(moduleID)
	if itemIndex != nil {
		path += fmt.Sprintf("&item=%d", *itemIndex)
	}
	return path
}
