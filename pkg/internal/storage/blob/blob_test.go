package blob_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yeisme/blobdrive/pkg/configs"
	"github.com/yeisme/blobdrive/pkg/internal/storage/blob"
)

func TestMetadataHelpers(t *testing.T) {
	base := blob.Metadata{"a": "1", "deleted": "true"}

	merged := base.Merge(blob.Metadata{"b": "2", "a": "3"})
	if merged["a"] != "3" || merged["b"] != "2" || base["a"] != "1" {
		t.Errorf("Merge() = %v, base = %v", merged, base)
	}

	trimmed := merged.Without("deleted", "missing")
	if _, ok := trimmed["deleted"]; ok {
		t.Error("Without() kept deleted")
	}

	if !base.Flag(blob.MetaDeleted) || trimmed.Flag(blob.MetaDeleted) {
		t.Error("Flag() mismatch")
	}

	var nilMeta blob.Metadata
	if c := nilMeta.Clone(); c == nil {
		t.Error("Clone() of nil should be empty map")
	}
}

func TestMemoryRequiresContainer(t *testing.T) {
	m := blob.NewMemory()
	ctx := context.Background()

	if _, err := m.Put(ctx, "c", "k", nil, "", nil); !errors.Is(err, blob.ErrContainerNotFound) {
		t.Fatalf("Put() error = %v, want ErrContainerNotFound", err)
	}

	if err := m.EnsureContainer(ctx, "c"); err != nil {
		t.Fatal(err)
	}

	if err := m.EnsureContainer(ctx, "c"); err != nil {
		t.Fatalf("second EnsureContainer() error = %v", err)
	}

	if _, err := m.Stat(ctx, "c", "k"); !errors.Is(err, blob.ErrObjectNotFound) {
		t.Fatalf("Stat() error = %v, want ErrObjectNotFound", err)
	}
}

func TestMemoryListing(t *testing.T) {
	m := blob.NewMemory()
	ctx := context.Background()
	_ = m.EnsureContainer(ctx, "c")

	for _, k := range []string{"u/a.txt", "u/docs/b.txt", "u/docs/c/d.txt", "u/z.txt", "v/x.txt"} {
		if _, err := m.Put(ctx, "c", k, []byte(k), "text/plain", blob.Metadata{"k": k}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := m.ListHierarchy(ctx, "c", "u/")
	if err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, e := range entries {
		if e.IsPrefix {
			got = append(got, e.Prefix)
		} else {
			got = append(got, e.Key)
		}
	}

	want := []string{"u/a.txt", "u/docs/", "u/z.txt"}
	if len(got) != len(want) {
		t.Fatalf("ListHierarchy() = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}

	flat, err := m.ListFlat(ctx, "c", "u/")
	if err != nil {
		t.Fatal(err)
	}

	if len(flat) != 4 {
		t.Fatalf("ListFlat() returned %d objects, want 4", len(flat))
	}

	if flat[0].Metadata["k"] != "u/a.txt" {
		t.Errorf("ListFlat() metadata = %v", flat[0].Metadata)
	}
}

func TestMemorySetMetadataIsolated(t *testing.T) {
	m := blob.NewMemory()
	ctx := context.Background()
	_ = m.EnsureContainer(ctx, "c")

	meta := blob.Metadata{"tags": "a"}
	if _, err := m.Put(ctx, "c", "k", []byte("hi"), "", meta); err != nil {
		t.Fatal(err)
	}

	meta["tags"] = "mutated"

	info, _ := m.Stat(ctx, "c", "k")
	if info.Metadata["tags"] != "a" {
		t.Errorf("stored metadata aliased caller map: %v", info.Metadata)
	}

	if err := m.SetMetadata(ctx, "c", "k", blob.Metadata{"tags": "b"}); err != nil {
		t.Fatal(err)
	}

	obj, err := m.Get(ctx, "c", "k")
	if err != nil {
		t.Fatal(err)
	}

	if string(obj.Body) != "hi" || obj.Metadata["tags"] != "b" || obj.ContentType != "application/octet-stream" {
		t.Errorf("Get() = %+v", obj)
	}

	if err := m.SetMetadata(ctx, "c", "missing", nil); !errors.Is(err, blob.ErrObjectNotFound) {
		t.Errorf("SetMetadata() on missing error = %v", err)
	}
}

// failingBackend 每次调用都返回同一个错误.
type failingBackend struct {
	*blob.Memory
	err   error
	calls int
}

func (f *failingBackend) Stat(context.Context, string, string) (blob.ObjectInfo, error) {
	f.calls++
	return blob.ObjectInfo{}, f.err
}

func breakerConfig() configs.CircuitBreakerConfig {
	return configs.CircuitBreakerConfig{
		Enabled:           true,
		FailureRate:       0.5,
		MinRequests:       2,
		IntervalSeconds:   60,
		TimeoutSeconds:    60,
		MaxRequestsInHalf: 1,
	}
}

func TestBreakerOpensOnFailures(t *testing.T) {
	fb := &failingBackend{Memory: blob.NewMemory(), err: errors.New("connection refused")}
	b := blob.WithBreaker(fb, "test", breakerConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := b.Stat(ctx, "c", "k"); err == nil {
			t.Fatal("expected error")
		}
	}

	if _, err := b.Stat(ctx, "c", "k"); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("Stat() error = %v, want ErrOpenState", err)
	}

	if fb.calls != 2 {
		t.Errorf("backend calls = %d, want 2", fb.calls)
	}

	if blob.BreakerState(b) != "open" {
		t.Errorf("BreakerState() = %q", blob.BreakerState(b))
	}
}

func TestBreakerIgnoresNotFound(t *testing.T) {
	fb := &failingBackend{Memory: blob.NewMemory(), err: blob.ErrObjectNotFound}
	b := blob.WithBreaker(fb, "test", breakerConfig())

	for i := 0; i < 5; i++ {
		if _, err := b.Stat(context.Background(), "c", "k"); !errors.Is(err, blob.ErrObjectNotFound) {
			t.Fatalf("call %d error = %v", i, err)
		}
	}

	if blob.BreakerState(b) != "closed" {
		t.Errorf("BreakerState() = %q, want closed", blob.BreakerState(b))
	}
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	fb := &failingBackend{Memory: blob.NewMemory(), err: fmt.Errorf("stat k: %w", context.Canceled)}
	b := blob.WithBreaker(fb, "test", breakerConfig())

	for i := 0; i < 5; i++ {
		if _, err := b.Stat(context.Background(), "c", "k"); !errors.Is(err, context.Canceled) {
			t.Fatalf("call %d error = %v", i, err)
		}

		if _, err := b.PresignGet(context.Background(), "c", "k", time.Minute); !errors.Is(err, blob.ErrPresignUnsupported) {
			t.Fatalf("PresignGet() error = %v", err)
		}
	}

	if fb.calls != 5 {
		t.Errorf("backend calls = %d, want 5", fb.calls)
	}

	if blob.BreakerState(b) != "closed" {
		t.Errorf("BreakerState() = %q, want closed", blob.BreakerState(b))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := blob.Open(context.Background(), &configs.StorageConfig{Driver: "nope"}, configs.CircuitBreakerConfig{})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}

	b, err := blob.Open(context.Background(), &configs.StorageConfig{Driver: configs.StorageMemory}, breakerConfig())
	if err != nil {
		t.Fatal(err)
	}

	if blob.BreakerState(b) != "closed" {
		t.Errorf("memory backend not wrapped with breaker")
	}
}
