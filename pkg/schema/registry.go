package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Factory builds a rule from its declarative entry.
type Factory func(spec RuleSpec) (domain.Rule, error)

// Registry holds the rule factories available to definitions.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for a rule type.
func (r *Registry) Register(ruleType string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[ruleType] = f
}

// Build resolves a rule entry into a rule.
func (r *Registry) Build(spec RuleSpec) (domain.Rule, error) {
	r.mu.RLock()
	f, ok := r.factories[spec.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownRule, spec.Type)
	}
	return f(spec)
}

// Types lists the registered rule types in lexical order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Decode copies a rule entry's parameters into out, a pointer to a struct
// with mapstructure tags. Unknown parameters are rejected and scalar types
// are converted leniently ("3" decodes into an int).
func Decode(spec RuleSpec, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(spec.Params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}
