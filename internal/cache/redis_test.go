package cache_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProstoyVadila/ml-service/internal/cache"
	"github.com/ProstoyVadila/ml-service/internal/config"
	"github.com/ProstoyVadila/ml-service/internal/domain"
)

var deepseekSource = domain.CapabilitySource{Name: "deepseek", Type: domain.SourceExternalAPI}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis_Key(t *testing.T) {
	r := cache.NewRedis(nil, "fields", 0, nil)

	key := r.Key(deepseekSource, "hello")
	assert.True(t, strings.HasPrefix(key, "fields:deepseek/EXTERNAL_API:"))
	// sha256("hello")
	assert.True(t, strings.HasSuffix(key, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"))
	assert.NotEqual(t, key, r.Key(regexSource, "hello"))
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	c := cache.NewRedis(client, "test", time.Minute, nil).Factory()(deepseekSource)

	_, ok := c.Get(ctx, "receipt")
	assert.False(t, ok)

	fields := []domain.ExtractionField{
		domain.NewField(domain.FieldPrice, "5300.50", 1, deepseekSource),
		domain.FailedField(domain.FieldDate, deepseekSource, errors.New("llm down")),
	}
	c.Set(ctx, "receipt", fields)

	got, ok := c.Get(ctx, "receipt")
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "5300.50", got[0].Value)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, deepseekSource, got[0].Source)
	assert.NoError(t, got[0].Err)
	require.Error(t, got[1].Err)
	assert.Equal(t, "llm down", got[1].Err.Error())

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, time.Minute, mr.TTL(keys[0]))
}

func TestRedis_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	c := cache.NewRedis(client, "test", time.Second, nil).Factory()(regexSource)

	c.Set(ctx, "t", []domain.ExtractionField{{Field: "date"}})
	mr.FastForward(2 * time.Second)

	_, ok := c.Get(ctx, "t")
	assert.False(t, ok)
}

func TestRedis_SourcesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	_, client := newMiniredis(t)
	factory := cache.NewRedis(client, "test", 0, nil).Factory()

	factory(regexSource).Set(ctx, "t", []domain.ExtractionField{{Field: "date", Value: "local"}})
	_, ok := factory(deepseekSource).Get(ctx, "t")
	assert.False(t, ok)
}

func TestRedis_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniredis(t)
	r := cache.NewRedis(client, "test", 0, nil)

	require.NoError(t, mr.Set(r.Key(regexSource, "t"), "not json"))
	_, ok := r.Factory()(regexSource).Get(ctx, "t")
	assert.False(t, ok)
}

func TestRedis_GetErrorIsMiss(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	r := cache.NewRedis(client, "test", 0, nil)

	mock.ExpectGet(r.Key(regexSource, "t")).SetErr(errors.New("connection refused"))

	_, ok := r.Factory()(regexSource).Get(ctx, "t")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := cache.NewRedisClient(context.Background(), &config.CacheConfig{RedisAddr: addr})
	assert.Error(t, err)
}

func TestNewRedisClient_OK(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := cache.NewRedisClient(context.Background(), &config.CacheConfig{RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}
