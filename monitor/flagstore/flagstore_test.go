package flagstore

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemFlagStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fs := NewMemFlagStore()

	l, err := fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Empty(l)

	assert.NoError(fs.Add(ctx, "spamuser", []string{"suspicious_phrases", "contains_urls"}))
	assert.NoError(fs.Add(ctx, "spamuser", []string{"suspicious_phrases", "repeat-text"}))
	l, err = fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Equal(3, len(l))

	assert.NoError(fs.Remove(ctx, "spamuser", []string{"suspicious_phrases", "repeat-text", "never-set"}))
	l, err = fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Equal([]string{"contains_urls"}, l)
}

func TestMemFlagStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	fs := NewMemFlagStore()

	// concurrent adds to one key must not lose flags; run with -race
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		flag := []string{"flag-a", "flag-b"}[i%2]
		go func(flag string) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(fs.Add(ctx, "spamuser", []string{flag}))
			}
		}(flag)
	}
	wg.Wait()

	l, err := fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Equal([]string{"flag-a", "flag-b"}, l)
}

func TestRedisFlagStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	fs, err := NewRedisFlagStore("redis://localhost:6379/0")
	if err != nil {
		t.Fail()
	}

	l, err := fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Empty(l)

	assert.NoError(fs.Add(ctx, "spamuser", []string{"suspicious_phrases", "contains_urls"}))
	assert.NoError(fs.Add(ctx, "spamuser", []string{"suspicious_phrases", "repeat-text"}))
	l, err = fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Equal(3, len(l))

	assert.NoError(fs.Remove(ctx, "spamuser", []string{"suspicious_phrases", "repeat-text"}))
	l, err = fs.Get(ctx, "spamuser")
	assert.NoError(err)
	assert.Equal([]string{"contains_urls"}, l)
	assert.NoError(fs.Remove(ctx, "spamuser", []string{"contains_urls"}))
}
