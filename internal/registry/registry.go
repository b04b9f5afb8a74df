// Package registry builds immutable per-network type registries from
// embedded call metadata and caches them by network key.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/rs/zerolog/log"
)

//go:embed base.toml
var baseTypesDoc string

const maxAliasChain = 64

var (
	ErrInvalidMetadata = errors.New("registry: invalid metadata")
	ErrUnresolvedType  = errors.New("registry: unresolved type")
	ErrTypeCycle       = errors.New("registry: alias cycle")
	ErrDuplicateCall   = errors.New("registry: duplicate call index")
)

type metadataDoc struct {
	SpecName    string      `toml:"spec_name"`
	SpecVersion uint32      `toml:"spec_version"`
	TxVersion   uint32      `toml:"tx_version"`
	Types       []TypeDef   `toml:"types"`
	Pallets     []palletDoc `toml:"pallets"`

	// lenient drops calls whose argument types do not resolve instead of
	// failing the build.
	lenient bool
}

type palletDoc struct {
	Name  string    `toml:"name"`
	Index int       `toml:"index"`
	Calls []callDoc `toml:"calls"`
}

type callDoc struct {
	Name  string `toml:"name"`
	Index int    `toml:"index"`
	Args  []Arg  `toml:"args"`
}

// Registry is the read-only type system of one network at one metadata
// version. It is safe for concurrent use.
type Registry struct {
	network     networks.Substrate
	specName    string
	specVersion uint32
	txVersion   uint32
	types       map[string]TypeDef
	calls       map[uint16]CallDef
}

var (
	baseOnce  sync.Once
	baseTypes []TypeDef
	baseErr   error
)

func loadBaseTypes() ([]TypeDef, error) {
	baseOnce.Do(func() {
		var doc metadataDoc
		if _, err := toml.Decode(baseTypesDoc, &doc); err != nil {
			baseErr = fmt.Errorf("%w: base types: %v", ErrInvalidMetadata, err)
			return
		}
		baseTypes = doc.Types
	})
	return baseTypes, baseErr
}

// Build constructs a registry for network from its metadata blob. Type
// definitions are layered base, then metadata, then overrides, with later
// layers replacing earlier definitions of the same name.
func Build(network networks.Substrate, meta networks.Metadata, overrides []TypeDef) (*Registry, error) {
	base, err := loadBaseTypes()
	if err != nil {
		return nil, err
	}

	var doc metadataDoc
	if networks.IsScale(meta.Blob) {
		if doc, err = scaleDoc(meta); err != nil {
			return nil, err
		}
	} else if doc, err = tomlDoc(meta); err != nil {
		return nil, err
	}

	r := &Registry{
		network:     network,
		specName:    doc.SpecName,
		specVersion: doc.SpecVersion,
		txVersion:   doc.TxVersion,
		types:       make(map[string]TypeDef),
		calls:       make(map[uint16]CallDef),
	}
	for _, layer := range [][]TypeDef{base, doc.Types, overrides} {
		for _, def := range layer {
			if strings.TrimSpace(def.Name) == "" {
				return nil, fmt.Errorf("%w: %s: type without name", ErrInvalidMetadata, meta.Key)
			}
			resolved, err := def.resolve()
			if err != nil {
				return nil, err
			}
			r.types[def.Name] = resolved
		}
	}

	for _, p := range doc.Pallets {
		if p.Index < 0 || p.Index > 255 || p.Name == "" {
			return nil, fmt.Errorf("%w: %s: pallet %q index %d", ErrInvalidMetadata, meta.Key, p.Name, p.Index)
		}
		for _, c := range p.Calls {
			if c.Index < 0 || c.Index > 255 || c.Name == "" {
				return nil, fmt.Errorf("%w: %s: call %s.%s index %d", ErrInvalidMetadata, meta.Key, p.Name, c.Name, c.Index)
			}
			def := CallDef{
				Pallet:      p.Name,
				Name:        c.Name,
				PalletIndex: uint8(p.Index),
				CallIndex:   uint8(c.Index),
				Args:        make([]Arg, len(c.Args)),
			}
			if err := r.callArgs(&def, c.Args, doc.lenient); err != nil {
				if !doc.lenient {
					return nil, err
				}
				log.Debug().Err(err).Str("call", def.Path()).Msg("registry.Build call dropped")
				continue
			}
			key := callKey(def.PalletIndex, def.CallIndex)
			if prev, dup := r.calls[key]; dup {
				return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateCall, prev.Path(), def.Path())
			}
			r.calls[key] = def
		}
	}

	if err := r.validate(doc.lenient); err != nil {
		return nil, fmt.Errorf("%s: %w", meta.Key, err)
	}
	return r, nil
}

func tomlDoc(meta networks.Metadata) (metadataDoc, error) {
	var doc metadataDoc
	md, err := toml.Decode(string(meta.Blob), &doc)
	if err != nil {
		return doc, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, meta.Key, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return doc, fmt.Errorf("%w: %s: unknown keys %s", ErrInvalidMetadata, meta.Key, strings.Join(keys, ", "))
	}
	return doc, nil
}

// callArgs parses the argument types of def. When lenient, every named
// type must also already be defined.
func (r *Registry) callArgs(def *CallDef, args []Arg, lenient bool) error {
	for i, a := range args {
		var err error
		if a.expr, err = ParseType(a.Type); err != nil {
			return fmt.Errorf("%s: %w", def.Path(), err)
		}
		if lenient {
			if missing := r.unresolved(a.expr); missing != "" {
				return fmt.Errorf("%w: %s references %s", ErrUnresolvedType, def.Path(), missing)
			}
		}
		def.Args[i] = a
	}
	return nil
}

func callKey(pallet, call uint8) uint16 {
	return uint16(pallet)<<8 | uint16(call)
}

// unresolved returns the first name in e that is neither primitive nor
// defined, or "" when all resolve.
func (r *Registry) unresolved(e *TypeExpr) string {
	var missing string
	e.walk(func(name string) {
		if missing != "" || IsPrimitive(name) {
			return
		}
		if _, ok := r.types[name]; !ok {
			missing = name
		}
	})
	return missing
}

// validate checks that every referenced name resolves and that alias
// chains terminate. Lenient registries log unresolved type references and
// leave them to fail at decode time.
func (r *Registry) validate(lenient bool) error {
	for name, def := range r.types {
		for _, e := range def.exprs() {
			missing := r.unresolved(e)
			if missing == "" {
				continue
			}
			if !lenient {
				return fmt.Errorf("%w: %s references %s", ErrUnresolvedType, name, missing)
			}
			log.Debug().Str("type", name).Str("missing", missing).Msg("registry.validate unresolved reference")
		}
		if def.Kind() == DefAlias {
			if err := r.checkAliasChain(name); err != nil {
				return err
			}
		}
	}
	for _, c := range r.calls {
		for _, a := range c.Args {
			if missing := r.unresolved(a.expr); missing != "" {
				return fmt.Errorf("%w: %s references %s", ErrUnresolvedType, c.Path(), missing)
			}
		}
	}
	return nil
}

func (r *Registry) checkAliasChain(name string) error {
	cur := name
	for i := 0; i < maxAliasChain; i++ {
		def, ok := r.types[cur]
		if !ok || def.Kind() != DefAlias || def.alias.Kind != ExprNamed {
			return nil
		}
		cur = def.alias.Name
	}
	return fmt.Errorf("%w: %s", ErrTypeCycle, name)
}

func (r *Registry) Network() networks.Substrate {
	return r.network
}

func (r *Registry) NetworkKey() string {
	return r.network.Key()
}

func (r *Registry) SpecName() string {
	return r.specName
}

func (r *Registry) SpecVersion() uint32 {
	return r.specVersion
}

func (r *Registry) TxVersion() uint32 {
	return r.txVersion
}

// Lookup returns the named type definition.
func (r *Registry) Lookup(name string) (TypeDef, bool) {
	def, ok := r.types[name]
	return def, ok
}

// Call returns the call addressed by pallet and call index.
func (r *Registry) Call(pallet, call uint8) (CallDef, bool) {
	def, ok := r.calls[callKey(pallet, call)]
	return def, ok
}

// CallByPath returns the call named pallet.call.
func (r *Registry) CallByPath(path string) (CallDef, bool) {
	for _, c := range r.calls {
		if c.Path() == path {
			return c, true
		}
	}
	return CallDef{}, false
}

// Calls lists every call ordered by pallet then call index.
func (r *Registry) Calls() []CallDef {
	out := make([]CallDef, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return callKey(out[i].PalletIndex, out[i].CallIndex) < callKey(out[j].PalletIndex, out[j].CallIndex)
	})
	return out
}
