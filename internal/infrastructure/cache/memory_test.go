package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tastemap/backend/internal/domain"
)

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache(clock *fakeClock) *MemoryCache[string] {
	return NewMemoryCache[string](0, WithClock[string](clock.Now))
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(clock)
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		value   string
		ttl     time.Duration
		advance time.Duration
		wantErr error
	}{
		{
			name:  "store and retrieve within ttl",
			key:   "k1",
			value: "v1",
			ttl:   5 * time.Minute,
		},
		{
			name:    "just before ttl is still fresh",
			key:     "k2",
			value:   "v2",
			ttl:     5 * time.Minute,
			advance: 5*time.Minute - time.Nanosecond,
		},
		{
			name:    "exactly at ttl is a miss",
			key:     "k3",
			value:   "v3",
			ttl:     5 * time.Minute,
			advance: 5 * time.Minute,
			wantErr: domain.ErrCacheMiss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			clock.Advance(tt.advance)

			got, err := cache.Get(ctx, tt.key)
			if err != tt.wantErr {
				t.Fatalf("Get() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.value {
				t.Errorf("Get() = %v, want %v", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache[string](0)
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_OverwriteResetsCreation(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(clock)
	ctx := context.Background()

	_ = cache.Set(ctx, "k", "old", time.Minute)
	clock.Advance(2 * time.Minute)
	if _, err := cache.Get(ctx, "k"); err != domain.ErrCacheMiss {
		t.Fatalf("Get() after expiry error = %v, want miss", err)
	}

	_ = cache.Set(ctx, "k", "new", time.Minute)
	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() after overwrite error = %v", err)
	}
	if got != "new" {
		t.Errorf("Get() = %q, want new", got)
	}
}

func TestMemoryCache_ExpiredEntryIsMiss(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(clock)
	ctx := context.Background()

	_ = cache.Set(ctx, "short", "v", time.Millisecond)
	clock.Advance(10 * time.Millisecond)

	if _, err := cache.Get(ctx, "short"); err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v after expiration", err, domain.ErrCacheMiss)
	}
	if cache.Size() != 1 {
		t.Errorf("Size() = %d, want 1 until the janitor sweeps", cache.Size())
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := NewMemoryCache[int](0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, i, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5 before clear", size)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
			t.Errorf("Get(%s) after clear error = %v, want %v", key, err, domain.ErrCacheMiss)
		}
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	cache := newTestCache(clock)
	ctx := context.Background()

	_ = cache.Set(ctx, "short", "a", time.Second)
	_ = cache.Set(ctx, "long", "b", time.Hour)
	clock.Advance(time.Minute)

	cache.removeExpired()

	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1 after janitor pass", size)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache[int](time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := string(rune('a' + id))
			if err := cache.Set(ctx, key, id, time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
