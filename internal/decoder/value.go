package decoder

import (
	"math/big"

	"github.com/danmuck/coldsign/internal/registry"
)

type ValueKind int

const (
	KindUnit ValueKind = iota
	KindBool
	KindInt
	KindBytes
	KindText
	KindAccount
	KindStruct
	KindEnum
	KindSeq
	KindTuple
	KindOption
	KindCall
)

// Value is one decoded node of a call argument tree.
type Value struct {
	Kind ValueKind
	// Type is the declared name for enums, structs and fixed hashes.
	Type    string
	Balance bool
	Bool    bool
	Int     *big.Int
	Bytes   []byte
	Text    string
	Fields  []NamedValue
	Variant string
	// Items holds sequence and tuple elements, the payload of an enum
	// variant, or the value of a present Option.
	Items []Value
	Call  *CallValue
}

type NamedValue struct {
	Name  string
	Value Value
}

// CallValue is a decoded call with its arguments in declaration order.
type CallValue struct {
	Def  registry.CallDef
	Args []NamedValue
}

func (v Value) isAccountLike() bool {
	if v.Kind == KindAccount {
		return true
	}
	return v.Kind == KindEnum && v.Type == "MultiAddress" && len(v.Items) == 1 &&
		(v.Variant == "Id" || v.Variant == "Address32")
}

// accountBytes returns the 32-byte account id for account-like values.
func (v Value) accountBytes() []byte {
	if v.Kind == KindAccount {
		return v.Bytes
	}
	return v.Items[0].Bytes
}

func (v Value) isCallBatch() bool {
	if v.Kind != KindSeq || len(v.Items) == 0 {
		return false
	}
	for _, it := range v.Items {
		if it.Kind != KindCall {
			return false
		}
	}
	return true
}
