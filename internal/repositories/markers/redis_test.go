package markers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/attendkeeper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisKey(t *testing.T) {
	assert.Equal(t, "checkin:marker:2026-10-15:budi santoso", redisKey("budi santoso", "2026-10-15"))
}

func TestNewRedisRepository_MinimumTTL(t *testing.T) {
	r := NewRedisRepository(nil, time.Hour)
	assert.Equal(t, 48*time.Hour, r.ttl)

	r = NewRedisRepository(nil, 72*time.Hour)
	assert.Equal(t, 72*time.Hour, r.ttl)
}

// Runs against a real server when CHECKIN_TEST_REDIS_ADDR is set.
func TestRedisRepository_MarkAndHas(t *testing.T) {
	addr := os.Getenv("CHECKIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHECKIN_TEST_REDIS_ADDR not set")
	}

	rdb := NewRedisClient(addr, "", 0)
	defer rdb.Close()
	r := NewRedisRepository(rdb, 48*time.Hour)
	ctx := context.Background()

	day := models.Date("2099-01-01")
	t.Cleanup(func() { rdb.Del(ctx, redisKey("ani", day)) })

	ok, err := r.Has(ctx, "ani", day)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Mark(ctx, "ani", "Ani", day))
	require.NoError(t, r.Mark(ctx, "ani", "Ani", day))

	ok, err = r.Has(ctx, "ani", day)
	require.NoError(t, err)
	require.True(t, ok)

	keys, err := r.ListDay(ctx, day)
	require.NoError(t, err)
	assert.Contains(t, keys, "ani")
}
