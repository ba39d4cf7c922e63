package domain

import "errors"

// ErrFormNotFound is returned when a form session ID is unknown.
var ErrFormNotFound = errors.New("form not found")

// ErrUnknownRule is returned when a definition names a rule type with no factory.
var ErrUnknownRule = errors.New("unknown rule type")

// ErrUnknownSchema is returned when a definition name is not loaded.
var ErrUnknownSchema = errors.New("unknown schema")
