package rules

import (
	"fmt"
	"regexp"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
)

type lengthParams struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

type oneOfParams struct {
	Values []string `mapstructure:"values"`
}

type patternParams struct {
	Pattern string `mapstructure:"pattern"`
}

type matchesParams struct {
	Field string `mapstructure:"field"`
}

// noParams builds factories for rules that only take a message.
func noParams(build func(string) domain.Rule) schema.Factory {
	return func(spec schema.RuleSpec) (domain.Rule, error) {
		if err := schema.Decode(spec, &struct{}{}); err != nil {
			return nil, err
		}
		return build(spec.Message), nil
	}
}

// RegisterBuiltins adds the stock rules to reg:
// required, email, phone, min_length, max_length, one_of, pattern, matches.
func RegisterBuiltins(reg *schema.Registry) {
	reg.Register("required", noParams(Required))
	reg.Register("email", noParams(Email))
	reg.Register("phone", noParams(Phone))

	reg.Register("min_length", func(spec schema.RuleSpec) (domain.Rule, error) {
		var p lengthParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		if p.Min <= 0 {
			return nil, fmt.Errorf("min must be positive")
		}
		return MinLength(p.Min, spec.Message), nil
	})
	reg.Register("max_length", func(spec schema.RuleSpec) (domain.Rule, error) {
		var p lengthParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		if p.Max <= 0 {
			return nil, fmt.Errorf("max must be positive")
		}
		return MaxLength(p.Max, spec.Message), nil
	})
	reg.Register("one_of", func(spec schema.RuleSpec) (domain.Rule, error) {
		var p oneOfParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("values must not be empty")
		}
		return OneOf(p.Values, spec.Message), nil
	})
	reg.Register("pattern", func(spec schema.RuleSpec) (domain.Rule, error) {
		var p patternParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern: %w", err)
		}
		return Pattern(re, spec.Message), nil
	})
	reg.Register("matches", func(spec schema.RuleSpec) (domain.Rule, error) {
		var p matchesParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		if p.Field == "" {
			return nil, fmt.Errorf("field is required")
		}
		return MatchesField(p.Field, spec.Message), nil
	})
}

// NewRegistry returns a registry preloaded with the stock rules.
func NewRegistry() *schema.Registry {
	reg := schema.NewRegistry()
	RegisterBuiltins(reg)
	return reg
}
