package networks

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/danmuck/coldsign/internal/testutil/testlog"
)

const polkadotGenesis = "0x91b171bb158e2d3848fa23a9f1c25182fb8e20313b2c1eb49219da7a70ce90c3"

func TestDefaultCatalogResolvesBuiltins(t *testing.T) {
	testlog.Start(t)
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	dot, ok := c.Network("0X91B171BB158E2D3848FA23A9F1C25182FB8E20313B2C1EB49219DA7A70CE90C3")
	if !ok {
		t.Fatalf("expected polkadot by upper-case genesis hash")
	}
	if dot.Unit != "DOT" || dot.Decimals != 10 || dot.Prefix != 0 {
		t.Fatalf("unexpected polkadot spec: %+v", dot)
	}
	meta, ok := c.Metadata(dot.MetadataKey)
	if !ok || meta.SpecVersion != 9110 || meta.TxVersion != 8 {
		t.Fatalf("unexpected polkadot metadata: %+v ok=%v", meta, ok)
	}
	if _, ok := c.Metadata("karura"); ok {
		t.Fatalf("karura ships without metadata")
	}
	if eth, ok := c.Ethereum("1"); !ok || eth.PathID != "frontier" {
		t.Fatalf("expected frontier for chain 1, got %+v", eth)
	}
}

func TestListIsOrdered(t *testing.T) {
	testlog.Start(t)
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	list := c.List()
	if len(list) < 4 || list[0].PathID != "polkadot" || list[1].PathID != "kusama" {
		t.Fatalf("unexpected ordering: %+v", list[:2])
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].Order > list[i].Order {
			t.Fatalf("list not ordered at %d", i)
		}
	}
	if !list[0].HasMetadata || list[0].SpecVersion != 9110 {
		t.Fatalf("expected polkadot metadata flag: %+v", list[0])
	}
}

func TestResolveByPathOrKey(t *testing.T) {
	testlog.Start(t)
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	key, err := c.Resolve("Polkadot")
	if err != nil || key != polkadotGenesis {
		t.Fatalf("resolve by path: key=%s err=%v", key, err)
	}
	if _, err := c.Resolve("nope"); !errors.Is(err, ErrUnknownNetwork) {
		t.Fatalf("expected ErrUnknownNetwork, got %v", err)
	}
}

func TestLoadRejectsInvalidSpecs(t *testing.T) {
	testlog.Start(t)
	dup := []byte(`
[[substrate]]
genesis_hash = "` + polkadotGenesis + `"
path_id = "a"
title = "A"
unit = "A"

[[substrate]]
genesis_hash = "` + polkadotGenesis + `"
path_id = "b"
title = "B"
unit = "B"
`)
	if _, err := Load(dup, nil); !errors.Is(err, ErrDuplicateSpec) {
		t.Fatalf("expected ErrDuplicateSpec, got %v", err)
	}

	short := []byte(`
[[substrate]]
genesis_hash = "0x1234"
path_id = "a"
title = "A"
unit = "A"
`)
	if _, err := Load(short, nil); !errors.Is(err, ErrInvalidSpec) {
		t.Fatalf("expected ErrInvalidSpec, got %v", err)
	}
}

func TestLoadRejectsMetadataWithoutVersion(t *testing.T) {
	testlog.Start(t)
	fsys := fstest.MapFS{"broken.toml": {Data: []byte(`spec_name = "broken"`)}}
	if _, err := Load([]byte(""), fsys); !errors.Is(err, ErrInvalidBlob) {
		t.Fatalf("expected ErrInvalidBlob, got %v", err)
	}
}
