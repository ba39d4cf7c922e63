// Package schema maps form fields to their ordered rule chains.
//
// A Schema can be assembled programmatically:
//
//	s := schema.Schema{
//	    "email": {rules.Required("required"), rules.Email("invalid format")},
//	    "notes": nil, // present in the form, no rules
//	}
//
// or loaded from a declarative Definition (YAML or JSON):
//
//	name: client
//	fields:
//	  email:
//	    rules:
//	      - type: required
//	        message: Email is required
//	      - type: min_length
//	        min: 5
//
// Rule entries are turned into domain.Rule values by a Registry of named
// factories; parameters beyond "type" and "message" are decoded into the
// factory's own parameter struct with mapstructure.
package schema
