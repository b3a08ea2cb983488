package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
)

func TestCacheRepositoryRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	repo := NewCacheRepository(client)
	ctx := context.Background()

	var count int
	assert.ErrorIs(t, repo.Get(ctx, "notifications:unread:lect-1", &count), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "notifications:unread:lect-1", 7, time.Minute))
	require.NoError(t, repo.Get(ctx, "notifications:unread:lect-1", &count))
	assert.Equal(t, 7, count)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "notifications:unread:lect-1", &count), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "notifications:unread:lect-2", 1, time.Minute))
	require.NoError(t, repo.Delete(ctx, "notifications:unread:lect-2"))
	assert.False(t, mr.Exists("notifications:unread:lect-2"))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil)
	var v string
	assert.ErrorIs(t, repo.Get(context.Background(), "k", &v), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "k", "v", time.Minute))
	assert.NoError(t, repo.Delete(context.Background(), "k"))
}
