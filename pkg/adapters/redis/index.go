package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces index keys.
const DefaultPrefix = "formwork:index:"

// Messages used when a rule entry does not declare one.
const (
	MsgTaken       = "This value is already taken"
	MsgUnavailable = "Unable to verify this value right now"
)

// ErrClaimed is returned by a claiming submit handler when a value was
// taken by someone else.
var ErrClaimed = errors.New("value already claimed")

// Index is a named set of claimed values.
type Index struct {
	client *backend.Client
	key    string
}

// NewIndex creates an index stored under prefix+name.
func NewIndex(client *backend.Client, prefix, name string) *Index {
	return &Index{client: client, key: prefix + name}
}

// Key returns the redis key of the set.
func (i *Index) Key() string { return i.key }

// normalize folds case and surrounding space, so "Ada@x.io " and "ada@x.io"
// collide.
func normalize(v any) string {
	if v == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
}

// Exists reports whether value has been claimed.
func (i *Index) Exists(ctx context.Context, value any) (bool, error) {
	member := normalize(value)
	if member == "" {
		return false, nil
	}
	ok, err := i.client.SIsMember(ctx, i.key, member).Result()
	if err != nil {
		return false, fmt.Errorf("redis error checking %s: %w", i.key, err)
	}
	return ok, nil
}

// Claim adds value to the index. It reports false when the value was
// already present.
func (i *Index) Claim(ctx context.Context, value any) (bool, error) {
	member := normalize(value)
	if member == "" {
		return true, nil
	}
	added, err := i.client.SAdd(ctx, i.key, member).Result()
	if err != nil {
		return false, fmt.Errorf("redis error claiming in %s: %w", i.key, err)
	}
	return added == 1, nil
}

// Release removes value from the index.
func (i *Index) Release(ctx context.Context, value any) error {
	member := normalize(value)
	if member == "" {
		return nil
	}
	if err := i.client.SRem(ctx, i.key, member).Err(); err != nil {
		return fmt.Errorf("redis error releasing in %s: %w", i.key, err)
	}
	return nil
}

// Rule fails with msg when the field's value is already claimed. Empty
// values pass. A lookup error fails with MsgUnavailable.
func (i *Index) Rule(msg string) domain.Rule {
	if msg == "" {
		msg = MsgTaken
	}
	return domain.RuleFunc(func(ctx context.Context, value any, _ domain.Values) domain.Result {
		taken, err := i.Exists(ctx, value)
		if err != nil {
			return domain.Fail(MsgUnavailable)
		}
		if taken {
			return domain.Fail(msg)
		}
		return domain.Ok()
	})
}

type uniqueParams struct {
	Index string `mapstructure:"index"`
}

// Factory builds "unique" rules for the schema registry:
//
//	- type: unique
//	  index: client_emails
//	  message: Email already registered
func Factory(client *backend.Client, prefix string) schema.Factory {
	return func(spec schema.RuleSpec) (domain.Rule, error) {
		var p uniqueParams
		if err := schema.Decode(spec, &p); err != nil {
			return nil, err
		}
		if p.Index == "" {
			return nil, fmt.Errorf("index is required")
		}
		return NewIndex(client, prefix, p.Index).Rule(spec.Message), nil
	}
}

// Register adds the "unique" rule type to reg.
func Register(reg *schema.Registry, client *backend.Client, prefix string) {
	reg.Register("unique", Factory(client, prefix))
}
