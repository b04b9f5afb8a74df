package decoder

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/danmuck/coldsign/internal/registry"
)

var (
	ErrUnknownCall    = errors.New("decoder: unknown call")
	ErrUnknownType    = errors.New("decoder: unknown type")
	ErrUnknownVariant = errors.New("decoder: unknown enum variant")
	ErrCallDepth      = errors.New("decoder: call nesting too deep")
	ErrInvalidBool    = errors.New("decoder: invalid bool")
	ErrInvalidOption  = errors.New("decoder: invalid option flag")
)

var fixedHashes = map[string]int{
	"H160": 20,
	"H256": 32,
	"H512": 64,
}

var fixedInts = map[string]struct {
	size   int
	signed bool
}{
	"u8": {1, false}, "u16": {2, false}, "u32": {4, false}, "u64": {8, false}, "u128": {16, false},
	"i8": {1, true}, "i16": {2, true}, "i32": {4, true}, "i64": {8, true}, "i128": {16, true},
}

type callDecoder struct {
	reg      *registry.Registry
	r        *reader
	depth    int
	maxDepth int
}

func (d *callDecoder) call() (*CallValue, error) {
	d.depth++
	defer func() { d.depth-- }()
	if d.depth > d.maxDepth {
		return nil, fmt.Errorf("%w: limit %d", ErrCallDepth, d.maxDepth)
	}

	pallet, err := d.r.byte()
	if err != nil {
		return nil, fmt.Errorf("call index: %w", err)
	}
	index, err := d.r.byte()
	if err != nil {
		return nil, fmt.Errorf("call index: %w", err)
	}
	def, ok := d.reg.Call(pallet, index)
	if !ok {
		return nil, fmt.Errorf("%w: %d/%d", ErrUnknownCall, pallet, index)
	}

	cv := &CallValue{Def: def}
	for _, arg := range def.Args {
		v, err := d.expr(arg.Expr())
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Path(), arg.Name, err)
		}
		cv.Args = append(cv.Args, NamedValue{Name: arg.Name, Value: v})
	}
	return cv, nil
}

func (d *callDecoder) expr(e *registry.TypeExpr) (Value, error) {
	switch e.Kind {
	case registry.ExprNamed:
		return d.named(e.Name)
	case registry.ExprCompact:
		n, err := d.r.compact()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: n, Balance: d.isBalance(e.Elem)}, nil
	case registry.ExprVec:
		n, err := d.r.length()
		if err != nil {
			return Value{}, err
		}
		if e.IsByteSeq() {
			b, err := d.r.bytes(n)
			return Value{Kind: KindBytes, Bytes: b}, err
		}
		return d.seq(e.Elem, n)
	case registry.ExprArray:
		if e.IsByteSeq() {
			b, err := d.r.bytes(e.Len)
			return Value{Kind: KindBytes, Bytes: b}, err
		}
		return d.seq(e.Elem, e.Len)
	case registry.ExprOption:
		flag, err := d.r.byte()
		if err != nil {
			return Value{}, err
		}
		switch flag {
		case 0:
			return Value{Kind: KindOption}, nil
		case 1:
			inner, err := d.expr(e.Elem)
			if err != nil {
				return Value{}, err
			}
			return Value{Kind: KindOption, Items: []Value{inner}}, nil
		default:
			return Value{}, fmt.Errorf("%w: 0x%02x", ErrInvalidOption, flag)
		}
	case registry.ExprTuple:
		if len(e.Items) == 0 {
			return Value{Kind: KindUnit}, nil
		}
		out := Value{Kind: KindTuple, Items: make([]Value, 0, len(e.Items))}
		for _, it := range e.Items {
			v, err := d.expr(it)
			if err != nil {
				return Value{}, err
			}
			out.Items = append(out.Items, v)
		}
		return out, nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownType, e)
	}
}

func (d *callDecoder) seq(elem *registry.TypeExpr, n int) (Value, error) {
	// Every element consumes at least one byte, except unit tuples.
	if n > d.r.remaining() && !(elem.Kind == registry.ExprTuple && len(elem.Items) == 0) {
		return Value{}, fmt.Errorf("%w: %d elements", ErrLengthRange, n)
	}
	out := Value{Kind: KindSeq, Items: make([]Value, 0, n)}
	for i := 0; i < n; i++ {
		v, err := d.expr(elem)
		if err != nil {
			return Value{}, fmt.Errorf("[%d]: %w", i, err)
		}
		out.Items = append(out.Items, v)
	}
	return out, nil
}

func (d *callDecoder) named(name string) (Value, error) {
	if spec, ok := fixedInts[name]; ok {
		var n *big.Int
		var err error
		switch {
		case spec.size == 1 && !spec.signed:
			var b byte
			b, err = d.r.byte()
			n = big.NewInt(int64(b))
		case spec.size == 16 && spec.signed:
			n, err = d.r.intLE(16)
		case spec.size == 16:
			n, err = d.r.uintLE(16)
		default:
			n, err = d.fixedInt(name)
		}
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindInt, Int: n}, nil
	}
	if size, ok := fixedHashes[name]; ok {
		b, err := d.r.bytes(size)
		return Value{Kind: KindBytes, Type: name, Bytes: b}, err
	}

	switch name {
	case "bool":
		b, err := d.r.byte()
		if err != nil {
			return Value{}, err
		}
		if b > 1 {
			return Value{}, fmt.Errorf("%w: 0x%02x", ErrInvalidBool, b)
		}
		return Value{Kind: KindBool, Bool: b == 1}, nil
	case "Bytes":
		n, err := d.r.length()
		if err != nil {
			return Value{}, err
		}
		b, err := d.r.bytes(n)
		return Value{Kind: KindBytes, Bytes: b}, err
	case "Text", "String":
		n, err := d.r.length()
		if err != nil {
			return Value{}, err
		}
		b, err := d.r.bytes(n)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{Kind: KindBytes, Bytes: b}, nil
		}
		return Value{Kind: KindText, Text: string(b)}, nil
	case "AccountId32":
		b, err := d.r.bytes(32)
		return Value{Kind: KindAccount, Bytes: b}, err
	case "Call":
		cv, err := d.call()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindCall, Call: cv}, nil
	case "Null":
		return Value{Kind: KindUnit}, nil
	}

	def, ok := d.reg.Lookup(name)
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	switch def.Kind() {
	case registry.DefAlias:
		v, err := d.expr(def.AliasExpr())
		if err != nil {
			return Value{}, err
		}
		if isBalanceName(name) && v.Kind == KindInt {
			v.Balance = true
		}
		return v, nil
	case registry.DefStruct:
		out := Value{Kind: KindStruct, Type: name, Fields: make([]NamedValue, 0, len(def.Fields))}
		for _, f := range def.Fields {
			v, err := d.expr(f.Expr())
			if err != nil {
				return Value{}, fmt.Errorf("%s.%s: %w", name, f.Name, err)
			}
			out.Fields = append(out.Fields, NamedValue{Name: f.Name, Value: v})
		}
		return out, nil
	default:
		idx, err := d.r.byte()
		if err != nil {
			return Value{}, err
		}
		variant, ok := def.Variant(idx)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s index %d", ErrUnknownVariant, name, idx)
		}
		out := Value{Kind: KindEnum, Type: name, Variant: variant.Name}
		if variant.Expr() != nil {
			inner, err := d.expr(variant.Expr())
			if err != nil {
				return Value{}, fmt.Errorf("%s::%s: %w", name, variant.Name, err)
			}
			out.Items = []Value{inner}
		}
		return out, nil
	}
}

func (d *callDecoder) fixedInt(name string) (*big.Int, error) {
	var err error
	switch name {
	case "u16":
		var v uint16
		if err = d.decodeFixed(&v, 2); err == nil {
			return new(big.Int).SetUint64(uint64(v)), nil
		}
	case "u32":
		var v uint32
		if err = d.decodeFixed(&v, 4); err == nil {
			return new(big.Int).SetUint64(uint64(v)), nil
		}
	case "u64":
		var v uint64
		if err = d.decodeFixed(&v, 8); err == nil {
			return new(big.Int).SetUint64(v), nil
		}
	case "i8":
		var v int8
		if err = d.decodeFixed(&v, 1); err == nil {
			return big.NewInt(int64(v)), nil
		}
	case "i16":
		var v int16
		if err = d.decodeFixed(&v, 2); err == nil {
			return big.NewInt(int64(v)), nil
		}
	case "i32":
		var v int32
		if err = d.decodeFixed(&v, 4); err == nil {
			return big.NewInt(int64(v)), nil
		}
	case "i64":
		var v int64
		if err = d.decodeFixed(&v, 8); err == nil {
			return big.NewInt(v), nil
		}
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return nil, err
}

func (d *callDecoder) decodeFixed(target any, size int) error {
	if d.r.remaining() < size {
		return fmt.Errorf("%w: need %d have %d", ErrShortPayload, size, d.r.remaining())
	}
	return d.r.dec.Decode(target)
}

func isBalanceName(name string) bool {
	return name == "Balance" || name == "BalanceOf"
}

// isBalance reports whether e names a balance type through its alias chain.
func (d *callDecoder) isBalance(e *registry.TypeExpr) bool {
	for i := 0; e != nil && e.Kind == registry.ExprNamed && i < 64; i++ {
		if isBalanceName(e.Name) {
			return true
		}
		def, ok := d.reg.Lookup(e.Name)
		if !ok || def.Kind() != registry.DefAlias {
			return false
		}
		e = def.AliasExpr()
	}
	return false
}
