package registry

import "fmt"

// Primitive type names understood by the decoder without a definition.
var primitives = map[string]struct{}{
	"bool": {}, "u8": {}, "u16": {}, "u32": {}, "u64": {}, "u128": {},
	"i8": {}, "i16": {}, "i32": {}, "i64": {}, "i128": {},
	"Bytes": {}, "Text": {}, "String": {},
	"AccountId32": {}, "H160": {}, "H256": {}, "H512": {},
	"Call": {}, "Null": {},
}

func IsPrimitive(name string) bool {
	_, ok := primitives[name]
	return ok
}

type DefKind int

const (
	DefAlias DefKind = iota
	DefStruct
	DefEnum
)

// TypeDef is a named type: an alias, a struct with ordered fields or an
// enum with indexed variants.
type TypeDef struct {
	Name     string    `toml:"name"`
	Alias    string    `toml:"alias"`
	Fields   []Field   `toml:"fields"`
	Variants []Variant `toml:"variants"`

	alias   *TypeExpr
	byIndex map[uint8]int
}

type Field struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	expr *TypeExpr
}

func (f Field) Expr() *TypeExpr {
	return f.expr
}

// Variant is one enum arm. Index defaults to the arm's position.
type Variant struct {
	Name  string `toml:"name"`
	Type  string `toml:"type"`
	Index *int   `toml:"index"`
	expr  *TypeExpr
}

// Expr is nil for unit variants.
func (v Variant) Expr() *TypeExpr {
	return v.expr
}

func (d TypeDef) Kind() DefKind {
	switch {
	case len(d.Variants) > 0:
		return DefEnum
	case len(d.Fields) > 0:
		return DefStruct
	default:
		return DefAlias
	}
}

func (d TypeDef) AliasExpr() *TypeExpr {
	return d.alias
}

// Variant returns the enum arm with discriminant idx.
func (d TypeDef) Variant(idx uint8) (Variant, bool) {
	i, ok := d.byIndex[idx]
	if !ok {
		return Variant{}, false
	}
	return d.Variants[i], true
}

// resolve parses every type expression in d. The result shares nothing
// with d so definitions from base, metadata and overrides stay independent.
func (d TypeDef) resolve() (TypeDef, error) {
	out := TypeDef{Name: d.Name, Alias: d.Alias}
	set := 0
	if d.Alias != "" {
		set++
	}
	if len(d.Fields) > 0 {
		set++
	}
	if len(d.Variants) > 0 {
		set++
	}
	if set != 1 {
		return TypeDef{}, fmt.Errorf("%w: type %q needs exactly one of alias, fields or variants", ErrInvalidMetadata, d.Name)
	}

	var err error
	switch d.Kind() {
	case DefAlias:
		if out.alias, err = ParseType(d.Alias); err != nil {
			return TypeDef{}, err
		}
	case DefStruct:
		out.Fields = make([]Field, len(d.Fields))
		for i, f := range d.Fields {
			if f.Name == "" {
				return TypeDef{}, fmt.Errorf("%w: type %q field %d has no name", ErrInvalidMetadata, d.Name, i)
			}
			if f.expr, err = ParseType(f.Type); err != nil {
				return TypeDef{}, err
			}
			out.Fields[i] = f
		}
	case DefEnum:
		out.Variants = make([]Variant, len(d.Variants))
		out.byIndex = make(map[uint8]int, len(d.Variants))
		next := 0
		for i, v := range d.Variants {
			idx := next
			if v.Index != nil {
				idx = *v.Index
			}
			if idx < 0 || idx > 255 {
				return TypeDef{}, fmt.Errorf("%w: type %q variant %q index %d", ErrInvalidMetadata, d.Name, v.Name, idx)
			}
			if _, dup := out.byIndex[uint8(idx)]; dup {
				return TypeDef{}, fmt.Errorf("%w: type %q duplicate variant index %d", ErrInvalidMetadata, d.Name, idx)
			}
			if v.Type != "" {
				if v.expr, err = ParseType(v.Type); err != nil {
					return TypeDef{}, err
				}
			}
			index := idx
			v.Index = &index
			out.Variants[i] = v
			out.byIndex[uint8(idx)] = i
			next = idx + 1
		}
	}
	return out, nil
}

func (d TypeDef) exprs() []*TypeExpr {
	switch d.Kind() {
	case DefAlias:
		return []*TypeExpr{d.alias}
	case DefStruct:
		out := make([]*TypeExpr, 0, len(d.Fields))
		for _, f := range d.Fields {
			out = append(out, f.expr)
		}
		return out
	default:
		out := make([]*TypeExpr, 0, len(d.Variants))
		for _, v := range d.Variants {
			if v.expr != nil {
				out = append(out, v.expr)
			}
		}
		return out
	}
}

// Arg is one ordered call argument.
type Arg struct {
	Name string `toml:"name"`
	Type string `toml:"type"`
	expr *TypeExpr
}

func (a Arg) Expr() *TypeExpr {
	return a.expr
}

// CallDef describes a dispatchable call addressed by pallet and call index.
type CallDef struct {
	Pallet      string
	Name        string
	PalletIndex uint8
	CallIndex   uint8
	Args        []Arg
}

// Path is the pallet.call display path.
func (c CallDef) Path() string {
	return c.Pallet + "." + c.Name
}
