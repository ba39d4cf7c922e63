package schema

import (
	"sort"

	"github.com/aretw0/formwork/pkg/domain"
)

// Schema maps field names to their ordered rule chains.
// A field with a nil chain is part of the form but always valid.
type Schema map[string][]domain.Rule

// Has reports whether the field is defined.
func (s Schema) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Rules returns the rule chain of a field (nil if absent).
func (s Schema) Rules(name string) []domain.Rule {
	return s[name]
}

// Fields returns the field names in lexical order.
func (s Schema) Fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
