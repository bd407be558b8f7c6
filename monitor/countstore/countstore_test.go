package countstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	c, err := cs.GetCount(ctx, "comments", "spamuser", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.Increment(ctx, "comments", "spamuser"))
	assert.NoError(cs.Increment(ctx, "comments", "spamuser"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, "comments", "spamuser", period)
		assert.NoError(err)
		assert.Equal(2, c)
	}

	// single-period increments leave the other buckets alone
	assert.NoError(cs.IncrementPeriod(ctx, "detections", "spamuser", PeriodDay))
	c, err = cs.GetCount(ctx, "detections", "spamuser", PeriodDay)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = cs.GetCount(ctx, "detections", "spamuser", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	c, err = cs.GetCountDistinct(ctx, "comment-text", "texthash", PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
	assert.NoError(cs.IncrementDistinct(ctx, "comment-text", "texthash", "alice"))
	assert.NoError(cs.IncrementDistinct(ctx, "comment-text", "texthash", "alice"))
	assert.NoError(cs.IncrementDistinct(ctx, "comment-text", "texthash", "alice"))
	c, err = cs.GetCountDistinct(ctx, "comment-text", "texthash", PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)

	assert.NoError(cs.IncrementDistinct(ctx, "comment-text", "texthash", "bob"))
	assert.NoError(cs.IncrementDistinct(ctx, "comment-text", "texthash", "carol"))

	for _, period := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCountDistinct(ctx, "comment-text", "texthash", period)
		assert.NoError(err)
		assert.Equal(3, c)
	}
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCountStore()

	// interleave increments and reads across goroutines; run with -race
	var wg sync.WaitGroup
	fnInc := func(name, val string, times int) {
		for i := 0; i < times; i++ {
			assert.NoError(cs.Increment(ctx, name, val))
			assert.NoError(cs.IncrementDistinct(ctx, name, name, val))
			time.Sleep(time.Nanosecond)
		}
		wg.Done()
	}
	fnRead := func(name, val string, times int) {
		for i := 0; i < times; i++ {
			_, err := cs.GetCount(ctx, name, val, PeriodTotal)
			assert.NoError(err)
			time.Sleep(time.Nanosecond)
		}
	}
	wg.Add(4)
	go fnInc("comments", "user1", 10)
	go fnInc("comments", "user1", 10)
	go fnRead("comments", "user1", 10)
	go fnInc("comments", "user2", 6)
	go fnInc("comments", "user2", 6)
	go fnRead("comments", "user2", 6)
	wg.Wait()

	c, err := cs.GetCount(ctx, "comments", "user1", PeriodTotal)
	assert.NoError(err)
	assert.Equal(20, c)
	c, err = cs.GetCount(ctx, "comments", "user2", PeriodTotal)
	assert.NoError(err)
	assert.Equal(12, c)

	c, err = cs.GetCountDistinct(ctx, "comments", "comments", PeriodTotal)
	assert.NoError(err)
	assert.Equal(2, c)
}
