package redis_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formwork"
	"github.com/aretw0/formwork/pkg/adapters/redis"
	"github.com/aretw0/formwork/pkg/domain"
	"github.com/aretw0/formwork/pkg/rules"
	"github.com/aretw0/formwork/pkg/schema"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestIndex_ClaimExistsRelease(t *testing.T) {
	mr, client := setup(t)
	idx := redis.NewIndex(client, redis.DefaultPrefix, "emails")
	ctx := context.Background()

	ok, err := idx.Claim(ctx, "Ada@Example.com ")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = idx.Claim(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, ok, "normalized duplicate must collide")

	exists, err := idx.Exists(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	members, err := mr.Members("formwork:index:emails")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada@example.com"}, members)

	require.NoError(t, idx.Release(ctx, "ada@example.com"))
	exists, err = idx.Exists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIndex_EmptyValuesAreIgnored(t *testing.T) {
	mr, client := setup(t)
	idx := redis.NewIndex(client, "t:", "emails")
	ctx := context.Background()

	ok, err := idx.Claim(ctx, "  ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("t:emails"))

	assert.True(t, idx.Rule("").Check(ctx, "", nil).IsOk())
}

func TestIndex_Rule(t *testing.T) {
	mr, client := setup(t)
	idx := redis.NewIndex(client, redis.DefaultPrefix, "emails")
	ctx := context.Background()
	_, err := mr.SAdd(idx.Key(), "taken@x.io")
	require.NoError(t, err)

	rule := idx.Rule("")
	assert.Equal(t, redis.MsgTaken, rule.Check(ctx, "taken@x.io", nil).Message())
	assert.True(t, rule.Check(ctx, "free@x.io", nil).IsOk())

	mr.SetError("server down")
	assert.Equal(t, redis.MsgUnavailable, rule.Check(ctx, "free@x.io", nil).Message())
}

func TestFactory(t *testing.T) {
	mr, client := setup(t)
	_, err := mr.SAdd("app:clients", "ada@x.io")
	require.NoError(t, err)

	reg := rules.NewRegistry()
	redis.Register(reg, client, "app:")

	def, err := schema.ParseDefinition([]byte(`
name: signup
fields:
  email:
    rules:
      - type: required
      - type: unique
        index: clients
        message: Email already registered
`))
	require.NoError(t, err)

	form, err := formwork.NewFromDefinition(def, reg, formwork.WithValidateOnChange(false))
	require.NoError(t, err)
	defer form.Close()

	form.SetFieldValue("email", "ada@x.io")
	errs, err := form.Validate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"email": "Email already registered"}, errs)

	_, err = reg.Build(schema.RuleSpec{Type: "unique"})
	assert.Error(t, err)
}

func TestClaimOnSubmit(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	def, err := schema.ParseDefinition([]byte(`
name: signup
fields:
  email:
    rules:
      - type: unique
        index: clients
  name: {}
`))
	require.NoError(t, err)
	claims, err := redis.DefinitionClaims(def, client, "app:")
	require.NoError(t, err)
	require.Contains(t, claims, "email")

	var saved []string
	handler := redis.ClaimOnSubmit(claims, "", func(_ context.Context, v domain.Values, _ domain.Helpers) error {
		saved = append(saved, v.Get("email").(string))
		return nil
	})

	first := formwork.New(domain.Values{"email": "ada@x.io", "name": "Ada"}, nil)
	defer first.Close()
	res, err := first.Submit(ctx, handler)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitSucceeded, res.Outcome)

	second := formwork.New(domain.Values{"email": "ADA@x.io", "name": "Eve"}, schema.Schema{"email": nil})
	defer second.Close()
	res, err = second.Submit(ctx, handler)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitFailed, res.Outcome)
	assert.Equal(t, redis.MsgTaken, second.Errors()["email"])

	assert.Equal(t, []string{"ada@x.io"}, saved)
}

func TestClaimOnSubmit_ReleasesOnHandlerFailure(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()
	idx := redis.NewIndex(client, redis.DefaultPrefix, "clients")

	handler := redis.ClaimOnSubmit(redis.Claims{"email": idx}, "", func(context.Context, domain.Values, domain.Helpers) error {
		return errors.New("db down")
	})
	form := formwork.New(domain.Values{"email": "ada@x.io"}, schema.Schema{"email": nil})
	defer form.Close()

	res, err := form.Submit(ctx, handler)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmitFailed, res.Outcome)

	exists, err := idx.Exists(ctx, "ada@x.io")
	require.NoError(t, err)
	assert.False(t, exists)
}
