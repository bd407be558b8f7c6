package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensocialmonitor/vigil/store"
)

func TestGormstorePersistence(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := store.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GormDBJob{}))

	s1 := NewGormstore(db)
	require.NoError(t, s1.EnqueueJob(ctx, KindAccount, "brand_account"))

	j, err := s1.GetJob(ctx, KindAccount, "brand_account")
	require.NoError(t, err)
	require.NoError(t, j.SetState(ctx, StateComplete))

	// enqueueing a finished job resets it
	require.NoError(t, s1.EnqueueJob(ctx, KindAccount, "brand_account"))
	assert.Equal(StateEnqueued, j.State())

	// a fresh store over the same database sees the queued job
	s2 := NewGormstore(db)
	require.NoError(t, s2.LoadJobs(ctx))
	next, err := s2.GetNextEnqueuedJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(KindAccount, next.Kind())
	assert.Equal("brand_account", next.Target())

	// purge drops the row for good
	require.NoError(t, s1.PurgeTarget(ctx, KindAccount, "brand_account"))
	_, err = s1.GetJob(ctx, KindAccount, "brand_account")
	assert.ErrorIs(err, ErrJobNotFound)
}

func TestGormstoreKindsDoNotCollide(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	db, err := store.SetupDatabase("sqlite://:memory:", 1)
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&GormDBJob{}))

	s := NewGormstore(db)
	require.NoError(t, s.EnqueueJob(ctx, KindAccount, "brand_account"))
	require.NoError(t, s.EnqueueJob(ctx, KindPost, "brand_account"))

	aj, err := s.GetJob(ctx, KindAccount, "brand_account")
	require.NoError(t, err)
	require.NoError(t, aj.SetState(ctx, StateComplete))

	// the post job with the same target string is a separate row
	pj, err := s.GetJob(ctx, KindPost, "brand_account")
	require.NoError(t, err)
	assert.Equal(StateEnqueued, pj.State())
}
