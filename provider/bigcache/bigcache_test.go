package bigcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/idmap/provider/providertest"
)

func newTestProvider(t *testing.T, cfg Config) *Provider {
	t.Helper()
	p, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestBigCacheContract(t *testing.T) {
	providertest.TestProvider(t, newTestProvider(t, Config{LifeWindow: time.Minute, Shards: 16}))
}

func TestLen(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, Config{Shards: 16})

	for _, k := range []string{"a", "b", "c"} {
		ok, err := p.Set(ctx, k, []byte(k), 1, 0)
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.Equal(t, 3, p.Len())

	require.NoError(t, p.Del(ctx, "b"))
	assert.Equal(t, 2, p.Len())
}

func TestOversizedFrameRejectedUnderHardLimit(t *testing.T) {
	p := newTestProvider(t, Config{Shards: 16, HardMaxCacheSizeMB: 1, MaxEntrySize: 64})

	huge := make([]byte, 2<<20)
	ok, err := p.Set(context.Background(), "big", huge, int64(len(huge)), 0)
	require.NoError(t, err)
	assert.False(t, ok)
}
