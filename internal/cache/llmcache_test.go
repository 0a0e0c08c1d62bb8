package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMCache_RoundTrip(t *testing.T) {
	c := &LLMCache{Dir: t.TempDir()}
	ctx := context.Background()
	key := KeyFrom("gpt-4o-mini", "analyze this document")

	_, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Save(ctx, key, []byte(`{"ok":true}`)))

	got, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(got))
}

func TestKeyFrom_DistinguishesModelAndPrompt(t *testing.T) {
	a := KeyFrom("model-a", "prompt")
	b := KeyFrom("model-b", "prompt")
	c := KeyFrom("model-a", "other prompt")
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestLLMCache_NoDirConfigured(t *testing.T) {
	var c LLMCache
	_, _, err := c.Get(context.Background(), "key")
	assert.Error(t, err)
}
