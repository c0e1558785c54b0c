package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yeisme/blobdrive/pkg/cache"
	"github.com/yeisme/blobdrive/pkg/internal/storage/kv"
)

// testRecord 测试用的缓存值.
type testRecord struct {
	ID     string    `json:"id"`
	Owner  string    `json:"owner"`
	Expiry time.Time `json:"expiry"`
}

func newStore(t *testing.T) kv.KVStore {
	t.Helper()

	store, err := kv.NewKVStore(context.Background(), kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatal(err)
	}

	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestGetSet(t *testing.T) {
	c := cache.New(newStore(t), "share")
	ctx := context.Background()

	if _, err := cache.Get[testRecord](ctx, c, "missing"); !cache.IsMiss(err) {
		t.Errorf("Get(missing) error = %v, want miss", err)
	}

	rec := testRecord{ID: "s1", Owner: "alice@example.com", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := cache.Set(ctx, c, "s1", rec, time.Minute); err != nil {
		t.Fatal(err)
	}

	got, err := cache.Get[testRecord](ctx, c, "s1")
	if err != nil {
		t.Fatal(err)
	}

	if got.ID != rec.ID || got.Owner != rec.Owner || !got.Expiry.Equal(rec.Expiry) {
		t.Errorf("Get() = %+v, want %+v", got, rec)
	}
}

func TestPrefixIsolation(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	a := cache.New(store, "a")
	b := cache.New(store, "b")

	_ = cache.Set(ctx, a, "k", 1, 0)
	_ = cache.Set(ctx, b, "k", 2, 0)

	if v, _ := cache.Get[int](ctx, a, "k"); v != 1 {
		t.Errorf("a.k = %d", v)
	}

	if err := a.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	if ok, _ := a.Exists(ctx, "k"); ok {
		t.Error("Clear() kept a.k")
	}

	if v, err := cache.Get[int](ctx, b, "k"); err != nil || v != 2 {
		t.Errorf("Clear() touched another prefix: %d, %v", v, err)
	}
}

func TestDelete(t *testing.T) {
	c := cache.New(newStore(t), "")
	ctx := context.Background()

	_ = cache.Set(ctx, c, "k", "v", 0)

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing) error = %v", err)
	}

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("key still exists")
	}
}

func TestGetOrSet(t *testing.T) {
	c := cache.New(newStore(t), "share")
	ctx := context.Background()

	var calls atomic.Int32

	getter := func() (testRecord, error) {
		calls.Add(1)
		time.Sleep(50 * time.Millisecond)

		return testRecord{ID: "s1"}, nil
	}

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if v, err := cache.GetOrSet(ctx, c, "s1", getter, time.Minute); err != nil || v.ID != "s1" {
				t.Errorf("GetOrSet() = %+v, %v", v, err)
			}
		}()
	}

	wg.Wait()

	if _, err := cache.GetOrSet(ctx, c, "s1", getter, time.Minute); err != nil {
		t.Fatal(err)
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("getter called %d times, want 1", n)
	}
}

func TestGetOrSetGetterError(t *testing.T) {
	c := cache.New(newStore(t), "")
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := cache.GetOrSet(ctx, c, "k", func() (string, error) { return "", boom }, 0)
	if !errors.Is(err, boom) {
		t.Errorf("GetOrSet() error = %v, want boom", err)
	}

	if ok, _ := c.Exists(ctx, "k"); ok {
		t.Error("failed getter result was cached")
	}
}
