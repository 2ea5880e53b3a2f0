package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestFetchFilePopulatesCache(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newFakeStore()
	cfg := testConfig()
	cfg.Redis.CacheTTL = time.Minute
	svc := NewImageService(store, client, cfg, zerolog.Nop())

	stored, err := svc.Upload(context.Background(), UploadInput{
		File:                bytes.NewReader(pngFixture(t, 20, 20)),
		DeclaredContentType: "image/png",
		Filename:            "cached.png",
	})
	require.NoError(t, err)

	data, contentType, err := svc.FetchFile(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Data, data)
	require.Equal(t, stored.ContentType, contentType)

	require.True(t, mini.Exists("image:bytes:"+stored.ID))

	// Second fetch is served from the cache; the bytes must be identical
	// even when the store row disappears underneath.
	store.mu.Lock()
	delete(store.rows, stored.ID)
	store.mu.Unlock()

	data, contentType, err = svc.FetchFile(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Data, data)
	require.Equal(t, stored.ContentType, contentType)
}

func TestFetchFileWithoutCacheConfigured(t *testing.T) {
	store := newFakeStore()
	svc := NewImageService(store, nil, testConfig(), zerolog.Nop())

	stored, err := svc.Upload(context.Background(), UploadInput{
		File:                bytes.NewReader(pngFixture(t, 10, 10)),
		DeclaredContentType: "image/png",
	})
	require.NoError(t, err)

	data, _, err := svc.FetchFile(context.Background(), stored.ID)
	require.NoError(t, err)
	require.Equal(t, stored.Data, data)
}
