// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	return NewMemoryCache(MemoryCacheOptions{
		DefaultTTL:      ttl,
		MaxSize:         maxSize,
		CleanupInterval: 0, // No background cleanup for tests
	})
}

func TestMemoryCache_BasicOperations(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 100)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	if err := cache.Set(ctx, "key1", []byte("value1"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := cache.Get(ctx, "key1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(val) != "value1" {
		t.Errorf("expected value1, got %s", string(val))
	}

	if err := cache.Delete(ctx, "key1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := cache.Get(ctx, "key1"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := newTestMemoryCache(20*time.Millisecond, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "short", []byte("v"), 0)
	_ = cache.Set(ctx, "long", []byte("v"), time.Hour)

	time.Sleep(40 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expired key to miss, got %v", err)
	}
	if got := cache.Stats().Items; got != 1 {
		t.Errorf("Items = %d, want 1 after expired lookup", got)
	}
	if _, err := cache.Get(ctx, "long"); err != nil {
		t.Errorf("expected custom TTL key to survive, got %v", err)
	}
}

func TestMemoryCache_MaxSizeEvicts(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 2)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "soon", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "late", []byte("2"), time.Hour)
	_ = cache.Set(ctx, "new", []byte("3"), time.Hour)

	if got := cache.Stats().Items; got != 2 {
		t.Fatalf("Items = %d, want 2", got)
	}
	if _, err := cache.Get(ctx, "soon"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected entry closest to expiry to be evicted, got %v", err)
	}

	// Overwriting an existing key does not evict.
	_ = cache.Set(ctx, "late", []byte("2b"), time.Hour)
	if _, err := cache.Get(ctx, "new"); err != nil {
		t.Errorf("overwrite evicted another key: %v", err)
	}
}

func TestMemoryCache_DeleteByPrefix(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	for _, k := range []string{"menu:main", "menu:footer", "other"} {
		_ = cache.Set(ctx, k, []byte(k), 0)
	}

	if err := cache.DeleteByPrefix(ctx, "menu:"); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if _, err := cache.Get(ctx, "menu:main"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("menu:main should be deleted, got %v", err)
	}
	if _, err := cache.Get(ctx, "other"); err != nil {
		t.Errorf("other should remain, got %v", err)
	}

	// An empty prefix matches every key.
	if err := cache.DeleteByPrefix(ctx, ""); err != nil {
		t.Fatalf("DeleteByPrefix failed: %v", err)
	}
	if stats := cache.Stats(); stats.Items != 0 || stats.Size != 0 {
		t.Errorf("expected empty cache, got %+v", stats)
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	_ = cache.Set(ctx, "a", []byte("abc"), 0)
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "a")
	_, _ = cache.Get(ctx, "missing")

	stats := cache.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if stats.Size != 3 {
		t.Errorf("Size = %d, want 3", stats.Size)
	}
	if stats.HitRate < 66 || stats.HitRate > 67 {
		t.Errorf("HitRate = %f, want ~66.7", stats.HitRate)
	}
}

func TestMemoryCache_ValueCopy(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 0)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	original := []byte("value")
	_ = cache.Set(ctx, "k", original, 0)
	original[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	if string(got) != "value" {
		t.Errorf("stored value mutated: %s", got)
	}
	got[0] = 'Y'
	again, _ := cache.Get(ctx, "k")
	if string(again) != "value" {
		t.Errorf("returned value aliases storage: %s", again)
	}
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	cache := newTestMemoryCache(time.Hour, 50)
	defer func() { _ = cache.Close() }()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				key := fmt.Sprintf("k%d-%d", n, j%10)
				_ = cache.Set(ctx, key, []byte("v"), 0)
				_, _ = cache.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Hour, CleanupInterval: time.Millisecond})
	ctx := context.Background()

	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Second close is a no-op.
	if err := cache.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := cache.Set(ctx, "k", []byte("v"), 0); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Set after close: expected ErrCacheClosed, got %v", err)
	}
	if _, err := cache.Get(ctx, "k"); !errors.Is(err, ErrCacheClosed) {
		t.Errorf("Get after close: expected ErrCacheClosed, got %v", err)
	}
}

func TestNew_Memory(t *testing.T) {
	c, backend, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	if backend != BackendMemory {
		t.Errorf("backend = %q, want %q", backend, BackendMemory)
	}
	if _, ok := c.(*MemoryCache); !ok {
		t.Errorf("expected *MemoryCache, got %T", c)
	}
}

func TestNew_InvalidRedisURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisURL = "not-a-url://"
	if _, _, err := New(cfg); err == nil {
		t.Error("expected error for invalid Redis URL")
	}
}
