package suppression

import (
    "context"
    "testing"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func newTestList(t *testing.T) *RedisList {
    t.Helper()
    mr, err := miniredis.Run()
    if err != nil {
        t.Fatalf("failed to start miniredis: %v", err)
    }
    t.Cleanup(mr.Close)
    return NewRedisList(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestSuppressThenCheck(t *testing.T) {
    list := newTestList(t)
    ctx := context.Background()

    ok, err := list.IsSuppressed(ctx, "acme-haulage", "+15550100")
    require.NoError(t, err)
    assert.False(t, ok)

    require.NoError(t, list.Suppress(ctx, "acme-haulage", "+15550100"))

    ok, err = list.IsSuppressed(ctx, "acme-haulage", "+15550100")
    require.NoError(t, err)
    assert.True(t, ok)
}

func TestSuppressionIsScopedPerTenant(t *testing.T) {
    list := newTestList(t)
    ctx := context.Background()

    require.NoError(t, list.Suppress(ctx, "acme-haulage", "driver@example.com"))

    ok, err := list.IsSuppressed(ctx, "northstar-freight", "driver@example.com")
    require.NoError(t, err)
    assert.False(t, ok, "one tenant's opt-out must not leak into another")
}

func TestSuppressIsIdempotent(t *testing.T) {
    list := newTestList(t)
    ctx := context.Background()

    require.NoError(t, list.Suppress(ctx, "acme-haulage", "+15550100"))
    require.NoError(t, list.Suppress(ctx, "acme-haulage", "+15550100"))

    ok, err := list.IsSuppressed(ctx, "acme-haulage", "+15550100")
    require.NoError(t, err)
    assert.True(t, ok)
}
