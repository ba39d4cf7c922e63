package dsl

import (
	"fmt"
	"time"

	"github.com/aretw0/formwork/pkg/schema"
)

// Builder manages the definition construction.
type Builder struct {
	def    schema.Definition
	fields map[string]*FieldBuilder
	order  []string
}

// New creates a new definition builder.
func New(name string) *Builder {
	return &Builder{
		def:    schema.Definition{Name: name},
		fields: make(map[string]*FieldBuilder),
	}
}

// Add starts a field. If the field already exists, it returns the existing
// builder.
func (b *Builder) Add(name string) *FieldBuilder {
	if fb, ok := b.fields[name]; ok {
		return fb
	}
	fb := &FieldBuilder{name: name, builder: b}
	b.fields[name] = fb
	b.order = append(b.order, name)
	return fb
}

// Debounce sets the change validation delay.
func (b *Builder) Debounce(d time.Duration) *Builder {
	b.def.Options.Debounce = &d
	return b
}

// ValidateOnChange toggles validation on change.
func (b *Builder) ValidateOnChange(enabled bool) *Builder {
	b.def.Options.ValidateOnChange = &enabled
	return b
}

// ValidateOnBlur toggles validation on blur.
func (b *Builder) ValidateOnBlur(enabled bool) *Builder {
	b.def.Options.ValidateOnBlur = &enabled
	return b
}

// Reinitialize enables state replacement when initial values change.
func (b *Builder) Reinitialize(enabled bool) *Builder {
	b.def.Options.Reinitialize = &enabled
	return b
}

// Build returns the definition. It fails when no field was added or a rule
// entry is malformed.
func (b *Builder) Build() (*schema.Definition, error) {
	if len(b.order) == 0 {
		return nil, fmt.Errorf("definition %q has no fields", b.def.Name)
	}
	def := b.def
	def.Fields = make(map[string]schema.FieldDefinition, len(b.order))
	for _, name := range b.order {
		fb := b.fields[name]
		for i, spec := range fb.field.Rules {
			if spec.Type == "" {
				return nil, fmt.Errorf("field %q: rule %d has no type", name, i)
			}
		}
		def.Fields[name] = fb.field
	}
	return &def, nil
}
