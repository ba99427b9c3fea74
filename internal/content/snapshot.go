// Package content assembles the three-level course hierarchy from the
// remote content API into an in-memory tree snapshot.
package content

import "github.com/capassotech/epefi-cursos/internal/contentapi"

// Snapshot is one fully or partially assembled course tree. Collections
// are replaced wholesale on every load; a Snapshot is never mutated after
// publication.
type Snapshot struct {
	Course contentapi.Course `json:"curso"`

	// Subjects in the order the course declares them; subjects whose
	// fetch failed are simply absent.
	Subjects []contentapi.Subject `json:"materias"`

	// Modules grouped by owning subject id (id_materia), ordered the way
	// the owning subject declares them. Orphaned modules are excluded.
	Modules map[string][]contentapi.Module `json:"modulos"`
}

// Subject returns a subject by id.
func (s Snapshot) Subject(id string) (contentapi.Subject, bool) {
	for _, sub := range s.Subjects {
		if sub.ID == id {
			return sub, true
		}
	}
	return contentapi.Subject{}, false
}

// Module returns a module by id, searching all subjects.
func (s Snapshot) Module(id string) (contentapi.Module, bool) {
	for _, mods := range s.Modules {
		for _, m := range mods {
			if m.ID == id {
				return m, true
			}
		}
	}
	return contentapi.Module{}, false
}

// ModuleCount returns the number of modules attributed to a subject.
func (s Snapshot) ModuleCount(subjectID string) int {
	return len(s.Modules[subjectID])
}

// TotalModules returns the number of modules across all subjects.
func (s Snapshot) TotalModules() int {
	n := 0
	for _, mods := range s.Modules {
		n += len(mods)
	}
	return n
}
