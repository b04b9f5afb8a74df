// Package networks holds the built-in catalog of Substrate and Ethereum
// networks and the embedded per-network call metadata.
package networks

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

//go:embed specs.toml
var builtinSpecs []byte

//go:embed metadata
var builtinMetadata embed.FS

var (
	ErrInvalidSpec    = errors.New("networks: invalid network spec")
	ErrDuplicateSpec  = errors.New("networks: duplicate network key")
	ErrInvalidBlob    = errors.New("networks: invalid metadata blob")
	ErrUnknownNetwork = errors.New("networks: unknown network")
)

type Protocol string

const (
	ProtocolSubstrate Protocol = "substrate"
	ProtocolEthereum  Protocol = "ethereum"
)

// Substrate describes one Substrate network, keyed by genesis hash.
type Substrate struct {
	GenesisHash string `toml:"genesis_hash"`
	PathID      string `toml:"path_id"`
	Title       string `toml:"title"`
	Unit        string `toml:"unit"`
	Decimals    uint8  `toml:"decimals"`
	Prefix      uint16 `toml:"prefix"`
	Color       string `toml:"color"`
	Order       int    `toml:"order"`
	MetadataKey string `toml:"metadata_key"`
}

// Key is the network key used by the registry cache.
func (s Substrate) Key() string {
	return s.GenesisHash
}

// Ethereum describes one Ethereum network, keyed by chain id.
type Ethereum struct {
	ChainID string `toml:"chain_id"`
	PathID  string `toml:"path_id"`
	Title   string `toml:"title"`
	Color   string `toml:"color"`
	Order   int    `toml:"order"`
}

// Metadata is an embedded call/type metadata blob for one network.
type Metadata struct {
	Key         string
	SpecName    string
	SpecVersion uint32
	TxVersion   uint32
	Blob        []byte
}

// Entry is a protocol-tagged catalog listing row.
type Entry struct {
	Protocol    Protocol
	Key         string
	PathID      string
	Title       string
	Order       int
	HasMetadata bool
	SpecVersion uint32
}

type specFile struct {
	Substrate []Substrate `toml:"substrate"`
	Ethereum  []Ethereum  `toml:"ethereum"`
}

type metadataHeader struct {
	SpecName    string `toml:"spec_name"`
	SpecVersion uint32 `toml:"spec_version"`
	TxVersion   uint32 `toml:"tx_version"`
}

// Catalog is an immutable network lookup table.
type Catalog struct {
	substrate map[string]Substrate
	ethereum  map[string]Ethereum
	metadata  map[string]Metadata
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog built from the embedded specs and metadata.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(builtinMetadata, "metadata")
		if err != nil {
			defaultErr = err
			return
		}
		defaultCatalog, defaultErr = Load(builtinSpecs, sub)
	})
	return defaultCatalog, defaultErr
}

// Load builds a catalog from a spec document and a directory of
// <metadata_key>.toml call tables or <metadata_key>.scale runtime metadata.
// metaFS may be nil.
func Load(specs []byte, metaFS fs.FS) (*Catalog, error) {
	var doc specFile
	if _, err := toml.NewDecoder(bytes.NewReader(specs)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}

	c := &Catalog{
		substrate: make(map[string]Substrate, len(doc.Substrate)),
		ethereum:  make(map[string]Ethereum, len(doc.Ethereum)),
		metadata:  make(map[string]Metadata),
	}
	for _, s := range doc.Substrate {
		s.GenesisHash = NormalizeGenesisHash(s.GenesisHash)
		s.PathID = normalizePathID(s.PathID)
		if err := validateSubstrate(s); err != nil {
			return nil, err
		}
		if _, dup := c.substrate[s.GenesisHash]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSpec, s.GenesisHash)
		}
		c.substrate[s.GenesisHash] = s
	}
	for _, e := range doc.Ethereum {
		e.ChainID = strings.TrimSpace(e.ChainID)
		e.PathID = normalizePathID(e.PathID)
		if e.ChainID == "" || e.PathID == "" {
			return nil, fmt.Errorf("%w: ethereum chain_id and path_id are required", ErrInvalidSpec)
		}
		if _, dup := c.ethereum[e.ChainID]; dup {
			return nil, fmt.Errorf("%w: ethereum %s", ErrDuplicateSpec, e.ChainID)
		}
		c.ethereum[e.ChainID] = e
	}

	if metaFS != nil {
		if err := c.loadMetadata(metaFS); err != nil {
			return nil, err
		}
	}
	log.Debug().
		Int("substrate", len(c.substrate)).
		Int("ethereum", len(c.ethereum)).
		Int("metadata", len(c.metadata)).
		Msg("networks.Load catalog ready")
	return c, nil
}

func (c *Catalog) loadMetadata(metaFS fs.FS) error {
	var names []string
	for _, pattern := range []string{"*.toml", "*" + ScaleExt} {
		matched, err := fs.Glob(metaFS, pattern)
		if err != nil {
			return err
		}
		names = append(names, matched...)
	}
	for _, name := range names {
		blob, err := fs.ReadFile(metaFS, name)
		if err != nil {
			return err
		}
		hdr, err := readHeader(blob)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidBlob, name, err)
		}
		if hdr.SpecVersion == 0 {
			return fmt.Errorf("%w: %s: spec_version is required", ErrInvalidBlob, name)
		}
		key := strings.TrimSuffix(path.Base(name), path.Ext(name))
		if _, dup := c.metadata[key]; dup {
			return fmt.Errorf("%w: %s: duplicate metadata key %q", ErrInvalidBlob, name, key)
		}
		c.metadata[key] = Metadata{
			Key:         key,
			SpecName:    hdr.SpecName,
			SpecVersion: hdr.SpecVersion,
			TxVersion:   hdr.TxVersion,
			Blob:        blob,
		}
	}
	return nil
}

func readHeader(blob []byte) (metadataHeader, error) {
	var hdr metadataHeader
	if !IsScale(blob) {
		_, err := toml.Decode(string(blob), &hdr)
		return hdr, err
	}
	md, err := DecodeScale(blob)
	if err != nil {
		return hdr, err
	}
	rv, err := ScaleVersion(md)
	if err != nil {
		return hdr, err
	}
	log.Debug().Str("spec", rv.SpecName).Uint32("spec_version", rv.SpecVersion).Uint8("metadata", md.Version).Msg("networks.readHeader runtime metadata")
	return metadataHeader{SpecName: rv.SpecName, SpecVersion: rv.SpecVersion, TxVersion: rv.TxVersion}, nil
}

func validateSubstrate(s Substrate) error {
	switch {
	case len(s.GenesisHash) != 66:
		return fmt.Errorf("%w: genesis_hash %q", ErrInvalidSpec, s.GenesisHash)
	case s.PathID == "":
		return fmt.Errorf("%w: %s: path_id is required", ErrInvalidSpec, s.GenesisHash)
	case strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Unit) == "":
		return fmt.Errorf("%w: %s: title and unit are required", ErrInvalidSpec, s.PathID)
	case s.Prefix > 16383:
		return fmt.Errorf("%w: %s: prefix %d", ErrInvalidSpec, s.PathID, s.Prefix)
	}
	return nil
}

// NormalizeGenesisHash lowercases a genesis hash and ensures its 0x prefix.
func NormalizeGenesisHash(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "0x") {
		h = "0x" + h
	}
	return h
}

func normalizePathID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Network returns the Substrate network keyed by genesis hash.
func (c *Catalog) Network(key string) (Substrate, bool) {
	s, ok := c.substrate[NormalizeGenesisHash(key)]
	return s, ok
}

// NetworkByPathID resolves a Substrate network by its path id.
func (c *Catalog) NetworkByPathID(pathID string) (Substrate, bool) {
	pathID = normalizePathID(pathID)
	for _, s := range c.substrate {
		if s.PathID == pathID {
			return s, true
		}
	}
	return Substrate{}, false
}

func (c *Catalog) Ethereum(chainID string) (Ethereum, bool) {
	e, ok := c.ethereum[strings.TrimSpace(chainID)]
	return e, ok
}

// Metadata returns the embedded metadata blob stored under key.
func (c *Catalog) Metadata(key string) (Metadata, bool) {
	m, ok := c.metadata[key]
	return m, ok
}

// List returns every network ordered by display order then title.
func (c *Catalog) List() []Entry {
	out := make([]Entry, 0, len(c.substrate)+len(c.ethereum))
	for _, s := range c.substrate {
		e := Entry{Protocol: ProtocolSubstrate, Key: s.GenesisHash, PathID: s.PathID, Title: s.Title, Order: s.Order}
		if m, ok := c.metadata[s.MetadataKey]; ok {
			e.HasMetadata = true
			e.SpecVersion = m.SpecVersion
		}
		out = append(out, e)
	}
	for _, eth := range c.ethereum {
		out = append(out, Entry{Protocol: ProtocolEthereum, Key: eth.ChainID, PathID: eth.PathID, Title: eth.Title, Order: eth.Order})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].Title < out[j].Title
	})
	return out
}

// Resolve maps a path id or network key to the Substrate network key.
func (c *Catalog) Resolve(ref string) (string, error) {
	if s, ok := c.Network(ref); ok {
		return s.Key(), nil
	}
	if s, ok := c.NetworkByPathID(ref); ok {
		return s.Key(), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownNetwork, ref)
}
