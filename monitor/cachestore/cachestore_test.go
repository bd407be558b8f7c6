package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Minute)

	v, err := cs.Get(ctx, "profile", "spamuser")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Set(ctx, "profile", "spamuser", `{"follower_count":12}`))
	v, err = cs.Get(ctx, "profile", "spamuser")
	assert.NoError(err)
	assert.Equal(`{"follower_count":12}`, v)

	// names partition the key space
	v, err = cs.Get(ctx, "activity", "spamuser")
	assert.NoError(err)
	assert.Equal("", v)

	assert.NoError(cs.Purge(ctx, "profile", "spamuser"))
	v, err = cs.Get(ctx, "profile", "spamuser")
	assert.NoError(err)
	assert.Equal("", v)
}

func TestMemCacheStoreEviction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(2, time.Minute)
	assert.NoError(cs.Set(ctx, "profile", "a", "1"))
	assert.NoError(cs.Set(ctx, "profile", "b", "2"))
	assert.NoError(cs.Set(ctx, "profile", "c", "3"))

	// capacity two: oldest entry evicted
	v, err := cs.Get(ctx, "profile", "a")
	assert.NoError(err)
	assert.Equal("", v)
	v, err = cs.Get(ctx, "profile", "c")
	assert.NoError(err)
	assert.Equal("3", v)
}
