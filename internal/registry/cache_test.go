package registry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/testutil/testlog"
)

type countingSource struct {
	*networks.Catalog
	mu    sync.Mutex
	calls map[string]int
}

func (s *countingSource) Metadata(key string) (networks.Metadata, bool) {
	s.mu.Lock()
	s.calls[key]++
	s.mu.Unlock()
	return s.Catalog.Metadata(key)
}

func TestCacheBuildsOnceAndReturnsSameRegistry(t *testing.T) {
	testlog.Start(t)
	src := &countingSource{Catalog: catalog(t), calls: map[string]int{}}
	cache := NewCache(src)

	var wg sync.WaitGroup
	regs := make([]*Registry, 16)
	for i := range regs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			regs[i] = cache.Get(polkadotKey)
		}(i)
	}
	wg.Wait()

	for i, reg := range regs {
		if reg == nil || reg != regs[0] {
			t.Fatalf("registry %d differs from first", i)
		}
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached registry, got %d", cache.Len())
	}
	again := cache.Get("0x91B171BB158E2D3848FA23A9F1C25182FB8E20313B2C1EB49219DA7A70CE90C3")
	if again != regs[0] {
		t.Fatalf("normalized key should hit the cache")
	}
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.calls["polkadot"] > 16 || src.calls["polkadot"] < 1 {
		t.Fatalf("unexpected metadata lookups: %d", src.calls["polkadot"])
	}
}

func TestCacheReturnsNilWithoutMetadata(t *testing.T) {
	testlog.Start(t)
	cache := NewCache(catalog(t))
	karura := "0xbaf5aabe40646d11f0ee8abbdc64f4a4b7674925cba08e4a05ff9ebed6e2126b"
	if reg := cache.Get(karura); reg != nil {
		t.Fatalf("expected nil registry for network without metadata")
	}
	if reg := cache.Get("0x00"); reg != nil {
		t.Fatalf("expected nil registry for unknown network")
	}
	if cache.Len() != 0 {
		t.Fatalf("missing metadata must not be cached")
	}
}

func TestCacheSnapshotsAreImmutable(t *testing.T) {
	testlog.Start(t)
	cache := NewCache(catalog(t))
	cache.Get(polkadotKey)
	snap := cache.entries.Load()
	cache.Get(westendKey)
	if len(*snap) != 1 {
		t.Fatalf("earlier snapshot changed after insert: %d entries", len(*snap))
	}
	if keys := cache.Keys(); len(keys) != 2 || keys[0] != polkadotKey {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestWarmReportsMissingMetadata(t *testing.T) {
	testlog.Start(t)
	cache := NewCache(catalog(t))
	if err := cache.Warm(context.Background(), []string{polkadotKey, westendKey}); err != nil {
		t.Fatalf("warm: %v", err)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected two warmed registries, got %d", cache.Len())
	}
	err := cache.Warm(context.Background(), []string{"0xbaf5aabe40646d11f0ee8abbdc64f4a4b7674925cba08e4a05ff9ebed6e2126b"})
	if !errors.Is(err, protocol.ErrMissingMetadata) {
		t.Fatalf("expected ErrMissingMetadata, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewCache(catalog(t)).Warm(ctx, []string{polkadotKey}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
