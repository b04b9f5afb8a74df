package registry

import (
	"context"
	"fmt"
	"maps"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/observability"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Source resolves networks and their metadata blobs.
type Source interface {
	Network(key string) (networks.Substrate, bool)
	Metadata(key string) (networks.Metadata, bool)
}

// OverrideFunc supplies type overrides for a network at a spec version.
type OverrideFunc func(network networks.Substrate, specVersion uint32) []TypeDef

// Cache maps network keys to built registries. Readers load an immutable
// snapshot; inserts publish a new map so existing snapshots never change.
type Cache struct {
	source    Source
	overrides OverrideFunc
	group     singleflight.Group

	mu      sync.Mutex
	entries atomic.Pointer[map[string]*Registry]
}

func NewCache(source Source) *Cache {
	c := &Cache{source: source, overrides: OverrideTypes}
	empty := map[string]*Registry{}
	c.entries.Store(&empty)
	return c
}

// WithOverrides replaces the override lookup. It must be called before the
// cache is shared.
func (c *Cache) WithOverrides(fn OverrideFunc) *Cache {
	c.overrides = fn
	return c
}

// Get returns the registry for networkKey, building it on first use. It
// returns nil when the network is unknown, has no metadata, or its
// metadata does not build.
func (c *Cache) Get(networkKey string) *Registry {
	key := networks.NormalizeGenesisHash(networkKey)
	if reg, ok := (*c.entries.Load())[key]; ok {
		return reg
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		if reg, ok := (*c.entries.Load())[key]; ok {
			return reg, nil
		}
		reg := c.build(key)
		if reg != nil {
			c.insert(key, reg)
		}
		return reg, nil
	})
	reg, _ := v.(*Registry)
	return reg
}

func (c *Cache) build(key string) *Registry {
	network, ok := c.source.Network(key)
	if !ok {
		log.Debug().Str("network", key).Msg("registry.Cache unknown network")
		return nil
	}
	meta, ok := c.source.Metadata(network.MetadataKey)
	if !ok {
		log.Debug().Str("network", network.PathID).Msg("registry.Cache no metadata")
		return nil
	}

	start := time.Now()
	reg, err := Build(network, meta, c.overrides(network, meta.SpecVersion))
	if err != nil {
		observability.RecordRegistryBuild(network.PathID, "error", time.Since(start))
		log.Warn().Err(err).Str("network", network.PathID).Msg("registry.Cache build failed")
		return nil
	}
	observability.RecordRegistryBuild(network.PathID, "built", time.Since(start))
	log.Debug().
		Str("network", network.PathID).
		Uint32("spec_version", reg.SpecVersion()).
		Int("calls", len(reg.calls)).
		Dur("elapsed", time.Since(start)).
		Msg("registry.Cache built")
	return reg
}

func (c *Cache) insert(key string, reg *Registry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := maps.Clone(*c.entries.Load())
	next[key] = reg
	c.entries.Store(&next)
}

func (c *Cache) Len() int {
	return len(*c.entries.Load())
}

// Keys lists cached network keys in sorted order.
func (c *Cache) Keys() []string {
	snap := *c.entries.Load()
	out := make([]string, 0, len(snap))
	for k := range snap {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Warm builds registries for keys in parallel. It reports the first
// network that could not be built, or ctx's error if it was cancelled.
func (c *Cache) Warm(ctx context.Context, keys []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if c.Get(key) == nil {
				return fmt.Errorf("%w: %s", protocol.ErrMissingMetadata, key)
			}
			return nil
		})
	}
	return g.Wait()
}
