package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/palava-labs/school-portal-api/pkg/errors"
)

type memoryCacheStore struct {
	entries map[string][]byte
}

func newMemoryCacheStore() *memoryCacheStore {
	return &memoryCacheStore{entries: make(map[string][]byte)}
}

func (m *memoryCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

func TestCacheServiceMissThenHit(t *testing.T) {
	svc := NewCacheService(newMemoryCacheStore(), nil, time.Minute, nil)

	var out string
	assert.False(t, svc.Get(context.Background(), "k1", &out))

	svc.Set(context.Background(), "k1", "cached value")
	require.True(t, svc.Get(context.Background(), "k1", &out))
	assert.Equal(t, "cached value", out)
}

func TestCacheServiceInvalidateByPattern(t *testing.T) {
	svc := NewCacheService(newMemoryCacheStore(), nil, time.Minute, nil)

	svc.Set(context.Background(), "sheet:stu-1:a", 1)
	svc.Set(context.Background(), "sheet:stu-1:b", 2)
	svc.Set(context.Background(), "sheet:stu-2:a", 3)

	svc.Invalidate(context.Background(), "sheet:stu-1:*")

	var out int
	assert.False(t, svc.Get(context.Background(), "sheet:stu-1:a", &out))
	assert.False(t, svc.Get(context.Background(), "sheet:stu-1:b", &out))
	assert.True(t, svc.Get(context.Background(), "sheet:stu-2:a", &out))
}

func TestCacheServiceDisabledWithoutStore(t *testing.T) {
	svc := NewCacheService(nil, nil, time.Minute, nil)
	assert.False(t, svc.Enabled())

	var out string
	assert.False(t, svc.Get(context.Background(), "k1", &out))
	svc.Set(context.Background(), "k1", "ignored")
	assert.False(t, svc.Get(context.Background(), "k1", &out))
}

func TestCacheServiceNilReceiverIsInert(t *testing.T) {
	var svc *CacheService
	assert.False(t, svc.Enabled())

	var out string
	assert.False(t, svc.Get(context.Background(), "k1", &out))
	svc.Set(context.Background(), "k1", "ignored")
	svc.Invalidate(context.Background(), "k*")
}
