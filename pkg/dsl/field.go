package dsl

import "github.com/aretw0/formwork/pkg/schema"

// FieldBuilder provides a fluent API for configuring a field. Rules are
// evaluated in the order they are added.
type FieldBuilder struct {
	name    string
	field   schema.FieldDefinition
	builder *Builder
}

// Initial sets the initial value.
func (f *FieldBuilder) Initial(v any) *FieldBuilder {
	f.field.Initial = v
	return f
}

// Rule appends a rule entry of any registered type.
func (f *FieldBuilder) Rule(ruleType, message string, params map[string]any) *FieldBuilder {
	if params == nil {
		params = map[string]any{}
	}
	f.field.Rules = append(f.field.Rules, schema.RuleSpec{Type: ruleType, Message: message, Params: params})
	return f
}

// Required rejects empty values.
func (f *FieldBuilder) Required(message string) *FieldBuilder {
	return f.Rule("required", message, nil)
}

// Email requires an email address.
func (f *FieldBuilder) Email(message string) *FieldBuilder {
	return f.Rule("email", message, nil)
}

// Phone requires a phone number.
func (f *FieldBuilder) Phone(message string) *FieldBuilder {
	return f.Rule("phone", message, nil)
}

// MinLength requires at least n characters.
func (f *FieldBuilder) MinLength(n int, message string) *FieldBuilder {
	return f.Rule("min_length", message, map[string]any{"min": n})
}

// MaxLength allows at most n characters.
func (f *FieldBuilder) MaxLength(n int, message string) *FieldBuilder {
	return f.Rule("max_length", message, map[string]any{"max": n})
}

// OneOf restricts the value to a fixed set.
func (f *FieldBuilder) OneOf(message string, values ...string) *FieldBuilder {
	return f.Rule("one_of", message, map[string]any{"values": values})
}

// Pattern requires the value to match a regular expression.
func (f *FieldBuilder) Pattern(expr, message string) *FieldBuilder {
	return f.Rule("pattern", message, map[string]any{"pattern": expr})
}

// Matches requires the value to equal another field's value.
func (f *FieldBuilder) Matches(other, message string) *FieldBuilder {
	return f.Rule("matches", message, map[string]any{"field": other})
}

// Unique requires the value to be unclaimed in a redis index.
func (f *FieldBuilder) Unique(index, message string) *FieldBuilder {
	return f.Rule("unique", message, map[string]any{"index": index})
}

// Add starts the next field.
func (f *FieldBuilder) Add(name string) *FieldBuilder {
	return f.builder.Add(name)
}

// Build finishes the definition.
func (f *FieldBuilder) Build() (*schema.Definition, error) {
	return f.builder.Build()
}

// Done returns to the definition builder, e.g. to set options.
func (f *FieldBuilder) Done() *Builder {
	return f.builder
}
