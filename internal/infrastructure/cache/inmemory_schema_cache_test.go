package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadscore/backend/internal/domain/rules"
)

func TestInMemorySchemaCache(t *testing.T) {
	c := NewInMemorySchemaCache()
	ctx := context.Background()

	_, ok := c.Get(ctx, "company_fit", "v1")
	assert.False(t, ok)

	c.Set(ctx, &rules.Schema{Name: "company_fit", Version: "v1", Type: rules.RuleTypeAdditiveScoring})
	c.Set(ctx, &rules.Schema{Name: "company_fit", Version: "v2", Type: rules.RuleTypeAdditiveScoring})

	got, ok := c.Get(ctx, "company_fit", "v1")
	require.True(t, ok)
	assert.Equal(t, "v1", got.Version)

	// Versions are cached independently.
	got, ok = c.Get(ctx, "company_fit", "v2")
	require.True(t, ok)
	assert.Equal(t, "v2", got.Version)

	_, ok = c.Get(ctx, "engagement", "v1")
	assert.False(t, ok)
}
