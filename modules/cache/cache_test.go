package cache

import (
	"context"
	"testing"
	"time"

	domain "github.com/example/task-tracker/domain/task"
	"github.com/redis/go-redis/v9"
)

// Tests need Redis on localhost:6379 and skip without it.
const testRedisAddr = "localhost:6379"

func setupTestCache(t *testing.T, prefix string, ttl time.Duration) *Cache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+"*").Result()
		if len(keys) > 0 {
			_ = client.Del(context.Background(), keys...).Err()
		}
		_ = client.Close()
	})
	return New(client, prefix, ttl)
}

func TestCache_TaskListRoundTrip(t *testing.T) {
	cache := setupTestCache(t, "test:tasks:", time.Minute)
	ctx := context.Background()

	started := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "t1", Owner: "alice", Title: "Write report", Status: domain.StatusInProgress, IsTimerRunning: true, TimeStarted: &started, Version: 2},
		{ID: "t2", Owner: "alice", Title: "Review", Status: domain.StatusPending, EstimatedTime: 30, Version: 1},
	}

	if err := cache.Set(ctx, "owner:alice", tasks); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var got []domain.Task
	found, err := cache.Get(ctx, "owner:alice", &got)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found {
		t.Fatal("Get() found = false, want true")
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].TimeStarted == nil || !got[0].TimeStarted.Equal(started) {
		t.Errorf("TimeStarted = %v, want %v", got[0].TimeStarted, started)
	}
	if got[1].EstimatedTime != 30 || got[1].Status != domain.StatusPending {
		t.Errorf("got[1] = %+v, want pending with 30 estimated minutes", got[1])
	}
}

func TestCache_MissAndDelete(t *testing.T) {
	cache := setupTestCache(t, "test:delete:", time.Minute)
	ctx := context.Background()

	var result []domain.Task
	if found, err := cache.Get(ctx, "owner:nobody", &result); err != nil || found {
		t.Fatalf("Get(missing) = (%v, %v), want (false, nil)", found, err)
	}

	if err := cache.Set(ctx, "owner:bob", []domain.Task{{ID: "t1"}}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := cache.Delete(ctx, "owner:bob"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if found, _ := cache.Get(ctx, "owner:bob", &result); found {
		t.Error("Get() after Delete() found = true, want false")
	}
	if err := cache.Delete(ctx, "owner:bob"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	cache := setupTestCache(t, "test:ttl:", 100*time.Millisecond)
	ctx := context.Background()

	if err := cache.Set(ctx, "owner:carol", []domain.Task{}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	var result []domain.Task
	if found, _ := cache.Get(ctx, "owner:carol", &result); !found {
		t.Fatal("Get() immediately after Set() should find the key")
	}

	time.Sleep(200 * time.Millisecond)

	if found, _ := cache.Get(ctx, "owner:carol", &result); found {
		t.Error("Get() after the TTL should return found = false")
	}
}

func TestCache_UndecodableValueIsDropped(t *testing.T) {
	cache := setupTestCache(t, "test:corrupt:", time.Minute)
	ctx := context.Background()

	if err := cache.client.Set(ctx, "test:corrupt:owner:dave", "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed error = %v", err)
	}

	var result []domain.Task
	found, err := cache.Get(ctx, "owner:dave", &result)
	if err == nil || found {
		t.Fatalf("Get() = (%v, %v), want a decode error", found, err)
	}
	if n, _ := cache.client.Exists(ctx, "test:corrupt:owner:dave").Result(); n != 0 {
		t.Error("undecodable value should have been deleted")
	}
	if cache.Stats().Failures != 1 {
		t.Errorf("Failures = %d, want 1", cache.Stats().Failures)
	}
}

func TestCache_Stats(t *testing.T) {
	cache := setupTestCache(t, "test:stats:", time.Minute)
	ctx := context.Background()

	_ = cache.Set(ctx, "key", "value")
	var result string
	_, _ = cache.Get(ctx, "key", &result)
	_, _ = cache.Get(ctx, "missing", &result)
	_, _ = cache.Get(ctx, "key", &result)
	_ = cache.Delete(ctx, "key")

	stats := cache.Stats()
	want := Stats{Hits: 2, Misses: 1, Writes: 1, Evictions: 1}
	want.HitRate = float64(2) / float64(3) * 100
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestCache_KeyPrefix(t *testing.T) {
	cache := setupTestCache(t, "myprefix:", time.Minute)
	ctx := context.Background()

	if err := cache.Set(ctx, "mykey", "myvalue"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	result, err := cache.client.Get(ctx, "myprefix:mykey").Result()
	if err != nil {
		t.Fatalf("direct Redis Get error = %v", err)
	}
	if result != `"myvalue"` {
		t.Errorf("stored value = %q, want %q", result, `"myvalue"`)
	}
}
