// Package rules provides the stock field rules used by the business forms:
// presence, length, e-mail and phone format, enumerations, patterns and
// cross-field equality. Each constructor takes the failure message;
// RegisterBuiltins exposes them to declarative definitions.
package rules
