package rules

import "github.com/aretw0/formwork/pkg/schema"

func schemaSpec(ruleType, msg string, params map[string]any) schema.RuleSpec {
	return schema.RuleSpec{Type: ruleType, Message: msg, Params: params}
}
