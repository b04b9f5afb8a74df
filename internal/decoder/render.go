package decoder

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/danmuck/coldsign/internal/ss58"
	"github.com/danmuck/coldsign/internal/units"
)

type ArgKind int

const (
	ArgString ArgKind = iota
	ArgStringList
	ArgCall
)

// ArgValue is a rendered argument: a display string, a list of display
// strings, or a nested call.
type ArgValue struct {
	Kind   ArgKind
	String string
	List   []string
	Call   *CallNode
}

type Arg struct {
	Name  string
	Value ArgValue
}

// CallNode is one rendered call. Args is nil for calls without arguments.
type CallNode struct {
	Path string
	Args []Arg
}

type chainProps struct {
	prefix   uint16
	decimals uint8
	unit     string
}

type argRule struct {
	name  string
	match func(v Value) bool
	apply func(r *renderer, v Value) ArgValue
}

// argRules are tried in order; the first match renders the argument.
// Populated in init because the rules recurse back into the renderer.
var argRules []argRule

func init() {
	argRules = []argRule{
		{"account", Value.isAccountLike, (*renderer).accountArg},
		{"batch", Value.isCallBatch, (*renderer).batchArg},
		{"call", func(v Value) bool { return v.Kind == KindCall }, (*renderer).callArg},
		{"list", func(v Value) bool { return v.Kind == KindSeq }, (*renderer).listArg},
		{"human", func(Value) bool { return true }, (*renderer).humanArg},
	}
}

type reorderRule func(nodes []CallNode) []CallNode

// reorderRules run over the flattened node list after rendering.
var reorderRules = []reorderRule{privilegedFirst}

type renderer struct {
	props chainProps
	nodes []CallNode
}

func render(root *CallValue, props chainProps) []CallNode {
	r := &renderer{props: props}
	r.flatten(root)
	nodes := r.nodes
	for _, rule := range reorderRules {
		nodes = rule(nodes)
	}
	return nodes
}

// flatten appends cv and, in depth-first pre-order, every call nested in its
// arguments.
func (r *renderer) flatten(cv *CallValue) CallNode {
	slot := len(r.nodes)
	r.nodes = append(r.nodes, CallNode{Path: cv.Def.Path()})
	var args []Arg
	for _, a := range cv.Args {
		args = append(args, Arg{Name: a.Name, Value: r.arg(a.Value)})
	}
	r.nodes[slot].Args = args
	return r.nodes[slot]
}

func (r *renderer) arg(v Value) ArgValue {
	for _, rule := range argRules {
		if rule.match(v) {
			return rule.apply(r, v)
		}
	}
	return ArgValue{}
}

func (r *renderer) accountArg(v Value) ArgValue {
	return ArgValue{Kind: ArgString, String: r.address(v.accountBytes())}
}

func (r *renderer) batchArg(v Value) ArgValue {
	paths := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		child := r.flatten(it.Call)
		paths = append(paths, child.Path)
	}
	return ArgValue{Kind: ArgStringList, List: paths}
}

func (r *renderer) callArg(v Value) ArgValue {
	child := r.flatten(v.Call)
	return ArgValue{Kind: ArgCall, Call: &child}
}

func (r *renderer) listArg(v Value) ArgValue {
	out := make([]string, 0, len(v.Items))
	for _, it := range v.Items {
		out = append(out, r.plain(it))
	}
	return ArgValue{Kind: ArgStringList, List: out}
}

func (r *renderer) humanArg(v Value) ArgValue {
	return ArgValue{Kind: ArgString, String: r.humanString(v)}
}

func (r *renderer) address(id []byte) string {
	addr, err := ss58.Encode(id, r.props.prefix)
	if err != nil {
		return "0x" + hex.EncodeToString(id)
	}
	return addr
}

// plain is the compact string form used for list elements.
func (r *renderer) plain(v Value) string {
	switch {
	case v.isAccountLike():
		return r.address(v.accountBytes())
	case v.Kind == KindInt:
		return v.Int.String()
	case v.Kind == KindBytes:
		return "0x" + hex.EncodeToString(v.Bytes)
	case v.Kind == KindCall:
		return v.Call.Def.Path()
	default:
		return r.humanString(v)
	}
}

func (r *renderer) humanString(v Value) string {
	h := r.human(v)
	if s, ok := h.(string); ok {
		return s
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "<unrenderable>"
	}
	return string(b)
}

// human converts v into a JSON-compatible display form.
func (r *renderer) human(v Value) any {
	if v.isAccountLike() {
		return r.address(v.accountBytes())
	}
	switch v.Kind {
	case KindUnit:
		return nil
	case KindBool:
		return v.Bool
	case KindInt:
		if v.Balance {
			return units.FormatBalance(v.Int, r.props.decimals, r.props.unit)
		}
		return v.Int.String()
	case KindBytes:
		if v.Type == "" && printable(v.Bytes) {
			return string(v.Bytes)
		}
		return "0x" + hex.EncodeToString(v.Bytes)
	case KindText:
		return v.Text
	case KindAccount:
		return r.address(v.Bytes)
	case KindStruct:
		obj := make(orderedObject, 0, len(v.Fields))
		for _, f := range v.Fields {
			obj = append(obj, keyValue{Key: f.Name, Value: r.human(f.Value)})
		}
		return obj
	case KindEnum:
		if len(v.Items) == 0 {
			return v.Variant
		}
		return orderedObject{{Key: v.Variant, Value: r.human(v.Items[0])}}
	case KindSeq, KindTuple:
		out := make([]any, 0, len(v.Items))
		for _, it := range v.Items {
			out = append(out, r.human(it))
		}
		return out
	case KindOption:
		if len(v.Items) == 0 {
			return nil
		}
		return r.human(v.Items[0])
	case KindCall:
		return v.Call.Def.Path()
	default:
		return nil
	}
}

func printable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range string(b) {
		if c == unicode.ReplacementChar || (!unicode.IsPrint(c) && !unicode.IsSpace(c)) {
			return false
		}
	}
	return true
}

type keyValue struct {
	Key   string
	Value any
}

// orderedObject marshals as a JSON object preserving field order.
type orderedObject []keyValue

func (o orderedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// privilegedFirst moves the first sudo call to the front, keeping the
// relative order of every other node.
func privilegedFirst(nodes []CallNode) []CallNode {
	for i, n := range nodes {
		if !strings.Contains(n.Path, "sudo") {
			continue
		}
		if i == 0 {
			return nodes
		}
		out := make([]CallNode, 0, len(nodes))
		out = append(out, n)
		out = append(out, nodes[:i]...)
		return append(out, nodes[i+1:]...)
	}
	return nodes
}
