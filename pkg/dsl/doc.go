/*
Package dsl provides a Go DSL for programmatically constructing form definitions.

It builds the same schema.Definition a YAML file would produce, using a fluent
builder instead of an external file. This is useful for generated forms,
tests, and IDE autocompletion. Rules are resolved later through a
schema.Registry, so custom rule types work as they do in YAML.

Example usage:

	def, err := dsl.New("signup").
		Debounce(200 * time.Millisecond).
		Add("email").Required("Email is required").Email("").Unique("accounts", "").
		Add("password").Required("").MinLength(8, "").
		Add("password_confirm").Matches("password", "Passwords do not match").
		Build()

	form, err := formwork.NewFromDefinition(def, rules.NewRegistry())
*/
package dsl
