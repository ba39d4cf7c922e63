package rules

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/formwork/pkg/domain"
)

// Default messages, used when a constructor receives "".
const (
	MsgRequired  = "This field is required"
	MsgEmail     = "Invalid email address"
	MsgPhone     = "Invalid phone number"
	MsgOneOf     = "Invalid option"
	MsgPattern   = "Invalid format"
	MsgMatches   = "Fields do not match"
	msgMinLength = "Must be at least %d characters"
	msgMaxLength = "Must be at most %d characters"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()\-]{6,19}$`)
)

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// text renders a value as a string for format checks. Non-strings use %v.
func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// IsEmpty reports whether a value counts as missing: nil, blank strings,
// false, and empty slices or maps.
func IsEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(s) == ""
	case bool:
		return !s
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Required fails on empty values (see IsEmpty).
func Required(msg string) domain.Rule {
	msg = orDefault(msg, MsgRequired)
	return domain.RuleFunc(func(_ context.Context, v any, _ domain.Values) domain.Result {
		if IsEmpty(v) {
			return domain.Fail(msg)
		}
		return domain.Ok()
	})
}

// optional wraps a format check so that empty values pass; presence is
// Required's job.
func optional(check func(string) bool, msg string) domain.Rule {
	return domain.RuleFunc(func(_ context.Context, v any, _ domain.Values) domain.Result {
		s := text(v)
		if s == "" || check(s) {
			return domain.Ok()
		}
		return domain.Fail(msg)
	})
}

// Email checks the address shape (local@domain.tld).
func Email(msg string) domain.Rule {
	return optional(emailPattern.MatchString, orDefault(msg, MsgEmail))
}

// Phone accepts digits with optional leading +, spaces, dashes and parentheses.
func Phone(msg string) domain.Rule {
	return optional(phonePattern.MatchString, orDefault(msg, MsgPhone))
}

// Pattern checks the value against a regular expression.
func Pattern(re *regexp.Regexp, msg string) domain.Rule {
	return optional(re.MatchString, orDefault(msg, MsgPattern))
}

// MinLength counts runes. Empty values pass.
func MinLength(n int, msg string) domain.Rule {
	msg = orDefault(msg, fmt.Sprintf(msgMinLength, n))
	return optional(func(s string) bool { return utf8.RuneCountInString(s) >= n }, msg)
}

// MaxLength counts runes.
func MaxLength(n int, msg string) domain.Rule {
	msg = orDefault(msg, fmt.Sprintf(msgMaxLength, n))
	return optional(func(s string) bool { return utf8.RuneCountInString(s) <= n }, msg)
}

// OneOf restricts the value to an enumerated set. Empty values pass.
func OneOf(options []string, msg string) domain.Rule {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o] = struct{}{}
	}
	return optional(func(s string) bool {
		_, ok := set[s]
		return ok
	}, orDefault(msg, MsgOneOf))
}

// MatchesField requires the value to equal another field's current value,
// e.g. a password confirmation.
func MatchesField(other, msg string) domain.Rule {
	msg = orDefault(msg, MsgMatches)
	return domain.RuleFunc(func(_ context.Context, v any, all domain.Values) domain.Result {
		if text(v) != text(all.Get(other)) {
			return domain.Fail(msg)
		}
		return domain.Ok()
	})
}
