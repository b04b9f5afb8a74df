package display

import (
	"fmt"
	"math/big"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/ethereum"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/session"
	"github.com/danmuck/coldsign/internal/units"
)

type ReviewDoc struct {
	Kind     string       `yaml:"kind"`
	Network  string       `yaml:"network,omitempty"`
	Sender   string       `yaml:"sender,omitempty"`
	Account  string       `yaml:"account,omitempty"`
	Unsafe   bool         `yaml:"unsafe,omitempty"`
	Calls    []CallDoc    `yaml:"calls,omitempty"`
	Envelope *EnvelopeDoc `yaml:"envelope,omitempty"`
	Raw      *RawDoc      `yaml:"raw,omitempty"`
	Message  string       `yaml:"message,omitempty"`
	Hashed   bool         `yaml:"hashed,omitempty"`
	Ethereum *EthereumDoc `yaml:"ethereum,omitempty"`
	Summary  string       `yaml:"summary,omitempty"`
}

type CallDoc struct {
	Call string   `yaml:"call"`
	Args []ArgDoc `yaml:"args,omitempty"`
}

// ArgDoc holds exactly one of Value, List or Call.
type ArgDoc struct {
	Name  string   `yaml:"name"`
	Value string   `yaml:"value,omitempty"`
	List  []string `yaml:"list,omitempty"`
	Call  *CallDoc `yaml:"call,omitempty"`
}

type EnvelopeDoc struct {
	Era         string `yaml:"era"`
	Nonce       string `yaml:"nonce"`
	Tip         string `yaml:"tip"`
	SpecVersion uint32 `yaml:"spec_version"`
	TxVersion   uint32 `yaml:"tx_version"`
	BlockHash   string `yaml:"block_hash"`
}

type RawDoc struct {
	Method      string `yaml:"method"`
	Era         string `yaml:"era,omitempty"`
	Nonce       string `yaml:"nonce,omitempty"`
	Tip         string `yaml:"tip,omitempty"`
	SpecVersion uint32 `yaml:"spec_version,omitempty"`
	TxVersion   uint32 `yaml:"tx_version,omitempty"`
	Reason      string `yaml:"reason,omitempty"`
}

type EthereumDoc struct {
	To       string `yaml:"to"`
	Value    string `yaml:"value"`
	Fee      string `yaml:"fee"`
	Gas      uint64 `yaml:"gas"`
	GasPrice string `yaml:"gas_price"`
	Nonce    uint64 `yaml:"nonce"`
	ChainID  string `yaml:"chain_id,omitempty"`
	Data     string `yaml:"data,omitempty"`
}

type AlertDoc struct {
	Kind     string   `yaml:"kind"`
	Title    string   `yaml:"title"`
	Message  string   `yaml:"message"`
	Actions  []string `yaml:"actions,omitempty"`
	Blocking bool     `yaml:"blocking,omitempty"`
	Frame    int      `yaml:"frame,omitempty"`
}

type ProgressDoc struct {
	Frame    uint16   `yaml:"frame"`
	Received int      `yaml:"received"`
	Total    int      `yaml:"total"`
	Missing  []uint16 `yaml:"missing,omitempty"`
}

type ResultDoc struct {
	Session   string `yaml:"session"`
	Scheme    string `yaml:"scheme"`
	Signature string `yaml:"signature"`
}

type NetworkDoc struct {
	Protocol string `yaml:"protocol"`
	PathID   string `yaml:"path_id"`
	Title    string `yaml:"title"`
	Key      string `yaml:"key"`
	Metadata uint32 `yaml:"metadata_spec,omitempty"`
}

func NewReviewDoc(r session.Review) ReviewDoc {
	doc := ReviewDoc{
		Kind:    r.Kind.String(),
		Network: r.NetworkTitle,
		Sender:  r.Sender,
		Account: r.Account.Name,
		Unsafe:  r.Unsafe(),
		Message: r.Message,
		Hashed:  r.Hashed,
		Summary: r.Description,
	}
	if ext := r.Extrinsic; ext != nil {
		doc.Calls = make([]CallDoc, 0, len(ext.Calls))
		for _, node := range ext.Calls {
			doc.Calls = append(doc.Calls, newCallDoc(node))
		}
		doc.Envelope = &EnvelopeDoc{
			Era:         ext.Era.String(),
			Nonce:       bigString(ext.Nonce),
			Tip:         ext.TipDisplay,
			SpecVersion: ext.SpecVersion,
			TxVersion:   ext.TxVersion,
			BlockHash:   ext.BlockHash,
		}
	}
	if fb := r.Fallback; fb != nil {
		doc.Raw = &RawDoc{
			Method:      fb.Method,
			Era:         fb.Era,
			Nonce:       fb.Nonce,
			Tip:         fb.Tip,
			SpecVersion: fb.SpecVersion,
			TxVersion:   fb.TxVersion,
			Reason:      fb.Reason,
		}
	}
	if tx := r.EthereumTx; tx != nil {
		doc.Ethereum = newEthereumDoc(tx)
		if doc.Summary == "" {
			doc.Summary = tx.Summary()
		}
	}
	return doc
}

func newCallDoc(node decoder.CallNode) CallDoc {
	out := CallDoc{Call: node.Path}
	for _, arg := range node.Args {
		a := ArgDoc{Name: arg.Name}
		switch arg.Value.Kind {
		case decoder.ArgStringList:
			a.List = arg.Value.List
		case decoder.ArgCall:
			if arg.Value.Call != nil {
				nested := newCallDoc(*arg.Value.Call)
				a.Call = &nested
			}
		default:
			a.Value = arg.Value.String
		}
		out.Args = append(out.Args, a)
	}
	return out
}

func newEthereumDoc(tx *ethereum.Transaction) *EthereumDoc {
	doc := &EthereumDoc{
		To:       tx.Recipient(),
		Value:    units.FormatEther(tx.Value),
		Fee:      units.FormatEther(tx.Fee()),
		Gas:      tx.Gas,
		GasPrice: bigString(tx.GasPrice),
		Nonce:    tx.Nonce,
	}
	if tx.ChainID != nil {
		doc.ChainID = tx.ChainID.String()
	}
	if len(tx.Data) > 0 {
		doc.Data = fmt.Sprintf("0x%x", tx.Data)
	}
	return doc
}

func NewAlertDoc(a session.Alert) AlertDoc {
	return AlertDoc{
		Kind:     string(a.Kind),
		Title:    a.Title,
		Message:  a.Message,
		Actions:  a.Actions,
		Blocking: a.Blocking,
		Frame:    a.Frame,
	}
}

func NewProgressDoc(p classify.MultipartProgress) ProgressDoc {
	return ProgressDoc{Frame: p.Frame, Received: p.Received, Total: p.Total, Missing: p.Missing}
}

func NewResultDoc(res session.SignedResult) ResultDoc {
	return ResultDoc{Session: res.SessionID, Scheme: res.Scheme.String(), Signature: res.Payload}
}

func NewNetworkDocs(entries []networks.Entry) []NetworkDoc {
	out := make([]NetworkDoc, 0, len(entries))
	for _, e := range entries {
		doc := NetworkDoc{Protocol: string(e.Protocol), PathID: e.PathID, Title: e.Title, Key: e.Key}
		if e.HasMetadata {
			doc.Metadata = e.SpecVersion
		}
		out = append(out, doc)
	}
	return out
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
