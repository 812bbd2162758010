package sessions

import (
	"context"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedisRepo(t *testing.T) (*RedisRepository, *mr.Miniredis) {
	t.Helper()
	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	return NewRedisRepository(client, ""), m
}

func TestRedisRepositoryRoundTrip(t *testing.T) {
	repo, _ := newRedisRepo(t)
	ctx := context.Background()

	s := &Session{
		Token:     "tok-1",
		UserID:    "user-1",
		CSRFToken: "csrf-1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, "csrf-1", got.CSRFToken)

	require.NoError(t, repo.DeleteByToken(ctx, "tok-1"))
	got, err = repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepositoryTTLExpiry(t *testing.T) {
	repo, m := newRedisRepo(t)
	ctx := context.Background()

	s := &Session{
		Token:     "tok-2",
		UserID:    "user-2",
		ExpiresAt: time.Now().UTC().Add(2 * time.Second),
	}
	require.NoError(t, repo.Create(ctx, s))

	m.FastForward(3 * time.Second)

	got, err := repo.GetByToken(ctx, "tok-2")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRedisRepositoryMissingToken(t *testing.T) {
	repo, _ := newRedisRepo(t)
	got, err := repo.GetByToken(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, got)
}
