package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/formwork/pkg/domain"
	"gopkg.in/yaml.v3"
)

// RuleSpec is one declarative rule entry. Keys other than "type" and
// "message" are collected into Params.
type RuleSpec struct {
	Type    string
	Message string
	Params  map[string]any
}

// UnmarshalYAML splits the entry into its reserved keys and parameters.
func (r *RuleSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	r.Params = make(map[string]any, len(raw))
	for k, v := range raw {
		switch k {
		case "type":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("line %d: rule type must be a string, got %T", node.Line, v)
			}
			r.Type = s
		case "message":
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("line %d: rule message must be a string, got %T", node.Line, v)
			}
			r.Message = s
		default:
			r.Params[k] = v
		}
	}
	if r.Type == "" {
		return fmt.Errorf("line %d: rule entry without type", node.Line)
	}
	return nil
}

// MessageOr returns the entry's message, or fallback when none was given.
func (r RuleSpec) MessageOr(fallback string) string {
	if r.Message != "" {
		return r.Message
	}
	return fallback
}

// FieldDefinition declares one field.
type FieldDefinition struct {
	Initial any        `yaml:"initial"`
	Rules   []RuleSpec `yaml:"rules"`
}

// OptionsDefinition mirrors the engine options. Nil pointers keep defaults.
type OptionsDefinition struct {
	Debounce         *time.Duration `yaml:"debounce"`
	ValidateOnChange *bool          `yaml:"validate_on_change"`
	ValidateOnBlur   *bool          `yaml:"validate_on_blur"`
	Reinitialize     *bool          `yaml:"reinitialize"`
}

// Definition is a declarative form: its fields, rules and options.
type Definition struct {
	Name    string                     `yaml:"name"`
	Options OptionsDefinition          `yaml:"options"`
	Fields  map[string]FieldDefinition `yaml:"fields"`
}

// ParseDefinition decodes a YAML (or JSON) definition.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if len(def.Fields) == 0 {
		return nil, fmt.Errorf("definition %q declares no fields", def.Name)
	}
	return &def, nil
}

// LoadDefinition reads a definition file. The file name (without extension)
// is used when the definition carries no name.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition: %w", err)
	}
	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if def.Name == "" {
		base := filepath.Base(path)
		def.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return def, nil
}

// LoadDir loads every .yaml, .yml and .json definition in dir, keyed by name.
func LoadDir(dir string) (map[string]*Definition, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema dir: %w", err)
	}
	defs := make(map[string]*Definition)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml", ".json":
		default:
			continue
		}
		def, err := LoadDefinition(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("duplicate definition name %q in %s", def.Name, dir)
		}
		defs[def.Name] = def
	}
	return defs, nil
}

// Schema resolves every rule entry through the registry. All problems are
// reported together.
func (d *Definition) Schema(reg *Registry) (Schema, error) {
	s := make(Schema, len(d.Fields))
	var errs []error

	for _, name := range d.FieldNames() {
		field := d.Fields[name]
		chain := make([]domain.Rule, 0, len(field.Rules))
		for i, spec := range field.Rules {
			rule, err := reg.Build(spec)
			if err != nil {
				errs = append(errs, &DefinitionError{Field: name, Index: i, Type: spec.Type, Err: err})
				continue
			}
			chain = append(chain, rule)
		}
		s[name] = chain
	}

	if len(errs) > 0 {
		return nil, &AggregateError{Errors: errs}
	}
	return s, nil
}

// InitialValues returns the declared initial values. Fields without one
// start as the empty string.
func (d *Definition) InitialValues() domain.Values {
	v := make(domain.Values, len(d.Fields))
	for name, field := range d.Fields {
		if field.Initial == nil {
			v[name] = ""
			continue
		}
		v[name] = field.Initial
	}
	return v
}

// FieldNames returns the declared field names in lexical order.
func (d *Definition) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldsWithRule lists the fields whose chain contains the given rule type.
func (d *Definition) FieldsWithRule(ruleType string) []string {
	var out []string
	for _, name := range d.FieldNames() {
		for _, spec := range d.Fields[name].Rules {
			if spec.Type == ruleType {
				out = append(out, name)
				break
			}
		}
	}
	return out
}
