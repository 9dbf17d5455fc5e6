// Package registry assembles experiment metadata documents into
// insertion-ordered, name-keyed registries of derived entities. The
// registries resolve cross-references between sections of one document:
// conditions reference materials and treatments by name, comparisons
// reference conditions, and result-table reconciliation looks up conditions
// and samples here.
package registry

import (
	"github.com/omics-warehouse-loader/internal/domain"
)

// Section is an insertion-ordered, name-keyed collection of entities of one
// kind, scoped to a single experiment.
type Section[T any] struct {
	byName map[string]T
	order  []string
}

// NewSection creates an empty section.
func NewSection[T any]() *Section[T] {
	return &Section[T]{byName: make(map[string]T)}
}

// Add registers an entity under name. Re-adding a name replaces the entity
// but keeps its original position.
func (s *Section[T]) Add(name string, entity T) {
	if _, ok := s.byName[name]; !ok {
		s.order = append(s.order, name)
	}
	s.byName[name] = entity
}

// Get returns the entity registered under name, if any.
func (s *Section[T]) Get(name string) (T, bool) {
	entity, ok := s.byName[name]
	return entity, ok
}

// Names returns the registered names in insertion order.
func (s *Section[T]) Names() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Len returns the number of registered entities.
func (s *Section[T]) Len() int { return len(s.byName) }

// Each calls fn for every entity in insertion order.
func (s *Section[T]) Each(fn func(name string, entity T)) {
	for _, name := range s.order {
		fn(name, s.byName[name])
	}
}

// Registry holds the named entities derived from one metadata document.
type Registry struct {
	Materials  *Section[domain.Material]
	Treatments *Section[domain.Treatment]
	Conditions *Section[*domain.Condition]
	Samples    *Section[*domain.Sample]
}

// NewRegistry creates an empty registry for one experiment.
func NewRegistry() *Registry {
	return &Registry{
		Materials:  NewSection[domain.Material](),
		Treatments: NewSection[domain.Treatment](),
		Conditions: NewSection[*domain.Condition](),
		Samples:    NewSection[*domain.Sample](),
	}
}
