package redis

import (
	"context"
	"fmt"

	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/schema"
	backend "github.com/redis/go-redis/v9"
)

// Claims maps field names to the index their value must be unique in.
type Claims map[string]*Index

// ClaimOnSubmit wraps next so the submitted values are claimed first. A
// collision is reported on the field with msg (MsgTaken when empty) and next
// is not called. Claims made by this attempt are released when it fails.
func ClaimOnSubmit(claims Claims, msg string, next domain.SubmitFunc) domain.SubmitFunc {
	if msg == "" {
		msg = MsgTaken
	}
	return func(ctx context.Context, values domain.Values, helpers domain.Helpers) (err error) {
		var held []string
		defer func() {
			if err == nil {
				return
			}
			for _, field := range held {
				// Best effort. A leaked claim only blocks the value.
				_ = claims[field].Release(context.WithoutCancel(ctx), values[field])
			}
		}()

		for field, idx := range claims {
			ok, cerr := idx.Claim(ctx, values[field])
			if cerr != nil {
				helpers.SetFieldError(field, MsgUnavailable)
				return cerr
			}
			if !ok {
				helpers.SetFieldError(field, msg)
				return fmt.Errorf("%w: %s", ErrClaimed, field)
			}
			held = append(held, field)
		}

		if next == nil {
			return nil
		}
		return next(ctx, values, helpers)
	}
}

// DefinitionClaims collects a claim for every field of def that carries a
// "unique" rule, using the rule's index.
func DefinitionClaims(def *schema.Definition, client *backend.Client, prefix string) (Claims, error) {
	claims := make(Claims)
	for _, field := range def.FieldsWithRule("unique") {
		for _, spec := range def.Fields[field].Rules {
			if spec.Type != "unique" {
				continue
			}
			var p uniqueParams
			if err := schema.Decode(spec, &p); err != nil {
				return nil, fmt.Errorf("field %q: %w", field, err)
			}
			claims[field] = NewIndex(client, prefix, p.Index)
			break
		}
	}
	return claims, nil
}
