package registry

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/rs/zerolog/log"
)

var ErrUnsupportedType = errors.New("registry: unsupported portable type")

// scaleDoc converts SCALE runtime metadata into a metadata document. V14
// carries a portable type registry from which every type reachable from a
// call argument is generated. V10 to V13 only carry type names, resolved
// against the base and override layers.
func scaleDoc(meta networks.Metadata) (metadataDoc, error) {
	md, err := networks.DecodeScale(meta.Blob)
	if err != nil {
		return metadataDoc{}, fmt.Errorf("%w: %s: %v", ErrInvalidMetadata, meta.Key, err)
	}
	doc := metadataDoc{SpecName: meta.SpecName, SpecVersion: meta.SpecVersion, TxVersion: meta.TxVersion, lenient: true}
	if md.Version == 14 {
		p := newPortable(&md.AsMetadataV14)
		doc.Pallets = p.pallets(md.AsMetadataV14.Pallets)
		doc.Types = p.defs
	} else {
		doc.Pallets = legacyPallets(networks.LegacyModules(md))
	}
	log.Debug().
		Str("metadata", meta.Key).
		Uint8("version", md.Version).
		Int("pallets", len(doc.Pallets)).
		Int("types", len(doc.Types)).
		Msg("registry.scaleDoc runtime metadata converted")
	return doc, nil
}

// Names the decoder gives meaning to; generated definitions never take them.
var reservedNames = map[string]struct{}{
	"Balance":   {},
	"BalanceOf": {},
}

type portable struct {
	lookup map[int64]types.Si1Type
	exprs  map[int64]string
	busy   map[int64]bool
	taken  map[string]struct{}
	defs   []TypeDef
}

func newPortable(md *types.MetadataV14) *portable {
	p := &portable{
		lookup: make(map[int64]types.Si1Type, len(md.Lookup.Types)),
		exprs:  make(map[int64]string),
		busy:   make(map[int64]bool),
		taken:  make(map[string]struct{}),
	}
	for _, t := range md.Lookup.Types {
		p.lookup[typeID(t.ID)] = t.Type
	}
	return p
}

func typeID(id types.Si1LookupTypeID) int64 {
	return id.Int64()
}

func (p *portable) pallets(in []types.PalletMetadataV14) []palletDoc {
	out := make([]palletDoc, 0, len(in))
	for _, pl := range in {
		if !pl.HasCalls {
			continue
		}
		name := snakeCase(string(pl.Name))
		t, ok := p.lookup[typeID(pl.Calls.Type)]
		if !ok || !t.Def.IsVariant {
			log.Debug().Str("pallet", name).Msg("registry.scaleDoc pallet call type is not an enum")
			continue
		}
		doc := palletDoc{Name: name, Index: int(pl.Index)}
		for _, v := range t.Def.Variant.Variants {
			call := callDoc{Name: string(v.Name), Index: int(v.Index), Args: make([]Arg, 0, len(v.Fields))}
			var err error
			for i, f := range v.Fields {
				var typ string
				if typ, err = p.field(f); err != nil {
					break
				}
				call.Args = append(call.Args, Arg{Name: fieldName(f, i), Type: typ})
			}
			if err != nil {
				log.Debug().Err(err).Str("call", name+"."+call.Name).Msg("registry.scaleDoc call skipped")
				continue
			}
			doc.Calls = append(doc.Calls, call)
		}
		out = append(out, doc)
	}
	return out
}

func fieldName(f types.Si1Field, i int) string {
	if f.HasName && f.Name != "" {
		return string(f.Name)
	}
	return fmt.Sprintf("arg%d", i)
}

// field renders a field type, keeping balance formatting for fields the
// runtime declares as balances.
func (p *portable) field(f types.Si1Field) (string, error) {
	expr, err := p.expr(typeID(f.Type))
	if err != nil {
		return "", err
	}
	if f.HasTypeName && strings.Contains(string(f.TypeName), "Balance") {
		switch expr {
		case "u128":
			return "Balance", nil
		case "Compact<u128>":
			return "Compact<Balance>", nil
		}
	}
	return expr, nil
}

var primitiveNames = map[types.Si0TypeDefPrimitive]string{
	types.IsBool: "bool",
	types.IsChar: "u32",
	types.IsStr:  "Text",
	types.IsU8:   "u8",
	types.IsU16:  "u16",
	types.IsU32:  "u32",
	types.IsU64:  "u64",
	types.IsU128: "u128",
	types.IsU256: "[u8; 32]",
	types.IsI8:   "i8",
	types.IsI16:  "i16",
	types.IsI32:  "i32",
	types.IsI64:  "i64",
	types.IsI128: "i128",
	types.IsI256: "[u8; 32]",
}

// expr returns the type expression for id, registering a named definition
// for structs and enums.
func (p *portable) expr(id int64) (string, error) {
	if s, ok := p.exprs[id]; ok {
		return s, nil
	}
	t, ok := p.lookup[id]
	if !ok {
		return "", fmt.Errorf("%w: type #%d", ErrUnresolvedType, id)
	}
	if p.busy[id] {
		return "", fmt.Errorf("%w: type #%d is self-referential", ErrUnsupportedType, id)
	}
	p.busy[id] = true
	defer delete(p.busy, id)

	s, err := p.render(id, t)
	if err != nil {
		return "", err
	}
	p.exprs[id] = s
	return s, nil
}

func (p *portable) render(id int64, t types.Si1Type) (string, error) {
	def := t.Def
	switch {
	case def.IsPrimitive:
		name, ok := primitiveNames[def.Primitive.Si0TypeDefPrimitive]
		if !ok {
			return "", fmt.Errorf("%w: primitive %d", ErrUnsupportedType, def.Primitive.Si0TypeDefPrimitive)
		}
		return name, nil
	case def.IsCompact:
		inner, err := p.expr(typeID(def.Compact.Type))
		if err != nil {
			return "", err
		}
		return "Compact<" + inner + ">", nil
	case def.IsSequence:
		inner, err := p.expr(typeID(def.Sequence.Type))
		if err != nil {
			return "", err
		}
		if inner == "u8" {
			return "Bytes", nil
		}
		return "Vec<" + inner + ">", nil
	case def.IsArray:
		if def.Array.Len == 0 {
			return "()", nil
		}
		inner, err := p.expr(typeID(def.Array.Type))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("[%s; %d]", inner, def.Array.Len), nil
	case def.IsTuple:
		items := make([]string, len(def.Tuple))
		for i, it := range def.Tuple {
			s, err := p.expr(typeID(it))
			if err != nil {
				return "", err
			}
			items[i] = s
		}
		return "(" + strings.Join(items, ", ") + ")", nil
	case def.IsComposite:
		return p.composite(id, t)
	case def.IsVariant:
		return p.variant(id, t)
	default:
		return "", fmt.Errorf("%w: type #%d %s", ErrUnsupportedType, id, joinPath(t.Path))
	}
}

func (p *portable) composite(id int64, t types.Si1Type) (string, error) {
	fields := t.Def.Composite.Fields
	switch last := lastSegment(t.Path); {
	case last == "AccountId32" || last == "H160" || last == "H256" || last == "H512":
		return last, nil
	case len(fields) == 0:
		return "()", nil
	case len(fields) == 1 && !fields[0].HasName:
		return p.field(fields[0])
	}

	name := p.claim(id, t.Path)
	p.exprs[id] = name
	def, err := p.fieldsDef(name, fields)
	if err != nil {
		delete(p.exprs, id)
		return "", err
	}
	p.defs = append(p.defs, def)
	return name, nil
}

// fieldsDef builds a struct when every field is named and a tuple alias
// otherwise.
func (p *portable) fieldsDef(name string, fields []types.Si1Field) (TypeDef, error) {
	named := true
	for _, f := range fields {
		named = named && f.HasName
	}
	if named {
		out := TypeDef{Name: name, Fields: make([]Field, len(fields))}
		for i, f := range fields {
			typ, err := p.field(f)
			if err != nil {
				return TypeDef{}, err
			}
			out.Fields[i] = Field{Name: string(f.Name), Type: typ}
		}
		return out, nil
	}
	items := make([]string, len(fields))
	for i, f := range fields {
		typ, err := p.field(f)
		if err != nil {
			return TypeDef{}, err
		}
		items[i] = typ
	}
	return TypeDef{Name: name, Alias: "(" + strings.Join(items, ", ") + ")"}, nil
}

func (p *portable) variant(id int64, t types.Si1Type) (string, error) {
	variants := t.Def.Variant.Variants
	if isRuntimeCall(t.Path) {
		return "Call", nil
	}
	if joinPath(t.Path) == "Option" && len(variants) == 2 && len(variants[1].Fields) == 1 {
		inner, err := p.field(variants[1].Fields[0])
		if err != nil {
			return "", err
		}
		return "Option<" + inner + ">", nil
	}
	if len(variants) == 0 {
		return "", fmt.Errorf("%w: empty enum %s", ErrUnsupportedType, joinPath(t.Path))
	}

	name := p.claim(id, t.Path)
	p.exprs[id] = name
	out := TypeDef{Name: name, Variants: make([]Variant, len(variants))}
	for i, v := range variants {
		idx := int(v.Index)
		arm := Variant{Name: string(v.Name), Index: &idx}
		switch {
		case len(v.Fields) == 0:
		case len(v.Fields) == 1 && !v.Fields[0].HasName:
			typ, err := p.field(v.Fields[0])
			if err != nil {
				delete(p.exprs, id)
				return "", err
			}
			arm.Type = typ
		default:
			armName := p.claimName(name + "_" + string(v.Name))
			def, err := p.fieldsDef(armName, v.Fields)
			if err != nil {
				delete(p.exprs, id)
				return "", err
			}
			p.defs = append(p.defs, def)
			arm.Type = armName
		}
		out.Variants[i] = arm
	}
	p.defs = append(p.defs, out)
	return name, nil
}

// claim picks a definition name for id: the last path segment when free,
// then the full path, then the full path suffixed with the type id.
func (p *portable) claim(id int64, path types.Si1Path) string {
	if len(path) == 0 {
		return p.claimName(fmt.Sprintf("T%d", id))
	}
	for _, candidate := range []string{lastSegment(path), joinPath(path)} {
		if p.free(candidate) {
			p.taken[candidate] = struct{}{}
			return candidate
		}
	}
	return p.claimName(fmt.Sprintf("%s_%d", joinPath(path), id))
}

func (p *portable) claimName(name string) string {
	out := name
	for i := 2; !p.free(out); i++ {
		out = fmt.Sprintf("%s_%d", name, i)
	}
	p.taken[out] = struct{}{}
	return out
}

func (p *portable) free(name string) bool {
	if IsPrimitive(name) {
		return false
	}
	if _, ok := reservedNames[name]; ok {
		return false
	}
	_, ok := p.taken[name]
	return !ok
}

func isRuntimeCall(path types.Si1Path) bool {
	if len(path) < 2 || !strings.HasSuffix(string(path[0]), "_runtime") {
		return false
	}
	last := lastSegment(path)
	return last == "Call" || last == "RuntimeCall"
}

func lastSegment(path types.Si1Path) string {
	if len(path) == 0 {
		return ""
	}
	return string(path[len(path)-1])
}

func joinPath(path types.Si1Path) string {
	parts := make([]string, len(path))
	for i, s := range path {
		parts[i] = string(s)
	}
	return strings.Join(parts, "::")
}

// snakeCase maps a pallet name such as ElectionProviderMultiPhase to the
// election_provider_multi_phase form used in call paths.
func snakeCase(s string) string {
	rs := []rune(s)
	var b strings.Builder
	for i, r := range rs {
		if unicode.IsUpper(r) && i > 0 {
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

var (
	legacySource  = strings.NewReplacer("<T::Lookup as StaticLookup>::Source", "LookupSource", "&'static [u8]", "Bytes")
	legacyAsTrait = regexp.MustCompile(`<T as [A-Za-z0-9_:]+>::`)
	legacyParams  = regexp.MustCompile(`<T(, I)?>`)
)

// legacyType rewrites a V10 to V13 argument type name into the expression
// syntax the registry parses.
func legacyType(s string) string {
	s = legacySource.Replace(strings.TrimSpace(s))
	s = legacyAsTrait.ReplaceAllString(s, "")
	s = legacyParams.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "T::", "")
}

func legacyPallets(mods []networks.LegacyModule) []palletDoc {
	out := make([]palletDoc, 0, len(mods))
	for _, m := range mods {
		if !m.HasCalls {
			continue
		}
		doc := palletDoc{Name: snakeCase(m.Name), Index: m.Index}
		for i, c := range m.Calls {
			call := callDoc{Name: string(c.Name), Index: i, Args: make([]Arg, len(c.Args))}
			for j, a := range c.Args {
				call.Args[j] = Arg{Name: string(a.Name), Type: legacyType(string(a.Type))}
			}
			doc.Calls = append(doc.Calls, call)
		}
		out = append(out, doc)
	}
	return out
}
