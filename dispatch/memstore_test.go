package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemstoreRetryBackoff(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mem := NewMemstore()
	require.NoError(t, mem.EnqueueJob(ctx, KindAccount, "flaky_account"))

	j, err := mem.GetJob(ctx, KindAccount, "flaky_account")
	require.NoError(t, err)
	require.NoError(t, j.SetState(ctx, StateInProgress))

	// a failed sweep schedules a retry with backoff
	require.NoError(t, j.SetState(ctx, "failed sweeping account"))
	assert.Equal(1, j.RetryCount())

	// not retryable until the backoff elapses
	next, err := mem.GetNextEnqueuedJob(ctx)
	require.NoError(t, err)
	assert.Nil(next)

	// force the backoff into the past
	mj := j.(*Memjob)
	past := time.Now().Add(-time.Second)
	mj.lk.Lock()
	mj.retryAfter = &past
	mj.lk.Unlock()

	next, err = mem.GetNextEnqueuedJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal("flaky_account", next.Target())
}

func TestMemstoreExhaustedRetries(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	mem := NewMemstore()
	require.NoError(t, mem.EnqueueJob(ctx, KindAccount, "dead_account"))
	j, err := mem.GetJob(ctx, KindAccount, "dead_account")
	require.NoError(t, err)

	mj := j.(*Memjob)
	mj.lk.Lock()
	mj.retryCount = MaxRetries
	mj.lk.Unlock()

	require.NoError(t, j.SetState(ctx, "failed sweeping account"))

	// out of retries: stays failed until explicitly re-enqueued
	next, err := mem.GetNextEnqueuedJob(ctx)
	require.NoError(t, err)
	assert.Nil(next)

	require.NoError(t, mem.EnqueueJob(ctx, KindAccount, "dead_account"))
	assert.Equal(StateEnqueued, j.State())
	assert.Equal(0, j.RetryCount())
}

func TestMemstoreEnqueueWithState(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	// seeding a job as complete records it without scheduling any work
	mem := NewMemstore()
	url := "https://example.com/p/DDD/"
	require.NoError(t, mem.EnqueueJobWithState(ctx, KindPost, url, StateComplete))

	next, err := mem.GetNextEnqueuedJob(ctx)
	require.NoError(t, err)
	assert.Nil(next)

	// a plain enqueue resets it back into the queue
	require.NoError(t, mem.EnqueueJob(ctx, KindPost, url))
	j, err := mem.GetJob(ctx, KindPost, url)
	require.NoError(t, err)
	assert.Equal(StateEnqueued, j.State())
}

func TestMemstorePurge(t *testing.T) {
	ctx := context.Background()

	mem := NewMemstore()
	require.NoError(t, mem.EnqueueJob(ctx, KindAccount, "gone_account"))
	require.NoError(t, mem.PurgeTarget(ctx, KindAccount, "gone_account"))

	_, err := mem.GetJob(ctx, KindAccount, "gone_account")
	assert.ErrorIs(t, err, ErrJobNotFound)
}
