package registry

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(&RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "sess-1", "CA123", "+15551234567", "wss://example.com/join"))

	record, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "sess-1", record.SessionID)
	assert.Equal(t, "CA123", record.CarrierCallSID)
	assert.Equal(t, "+15551234567", record.CallerNumber)
	assert.Equal(t, "wss://example.com/join", record.JoinURL)
	assert.WithinDuration(t, time.Now(), record.StartTime, time.Minute)

	assert.Equal(t, defaultCallTTL, mr.TTL(callKey("sess-1")))
}

func TestRedisStoreGetUnknown(t *testing.T) {
	store, _ := newRedisTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestRedisStoreRegisterOverwrites(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "sess-1", "CA123", "+15551234567", ""))
	require.NoError(t, store.Register(ctx, "sess-1", "CA456", "+15557654321", ""))

	record, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "CA456", record.CarrierCallSID)
}

func TestRedisStoreRecordsExpire(t *testing.T) {
	store, mr := newRedisTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Register(ctx, "sess-1", "CA123", "+15551234567", ""))
	mr.FastForward(defaultCallTTL + time.Minute)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrCallNotFound)
}

func TestRedisStoreListAll(t *testing.T) {
	store, _ := newRedisTestStore(t)
	ctx := context.Background()

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	require.NoError(t, store.Register(ctx, "sess-1", "CA123", "+15551234567", ""))
	require.NoError(t, store.Register(ctx, "sess-2", "CA456", "+15557654321", ""))

	records, err = store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	seen := map[string]string{}
	for _, record := range records {
		seen[record.SessionID] = record.CarrierCallSID
	}
	assert.Equal(t, map[string]string{"sess-1": "CA123", "sess-2": "CA456"}, seen)
}
