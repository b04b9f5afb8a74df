package networks

import (
	"bytes"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
)

// ScaleExt names metadata files holding SCALE-encoded runtime metadata as
// served by a node's state_getMetadata.
const ScaleExt = ".scale"

var scaleMagic = []byte("meta")

// IsScale reports whether blob is SCALE runtime metadata rather than a TOML
// call table: the magic followed by a supported version byte.
func IsScale(blob []byte) bool {
	return len(blob) > len(scaleMagic) && bytes.HasPrefix(blob, scaleMagic) &&
		blob[len(scaleMagic)] >= 10 && blob[len(scaleMagic)] <= 14
}

// DecodeScale decodes runtime metadata. Versions 10 through 14 are accepted.
func DecodeScale(blob []byte) (*types.Metadata, error) {
	md := new(types.Metadata)
	if err := codec.Decode(blob, md); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	if md.Version < 10 || md.Version > 14 {
		return nil, fmt.Errorf("%w: metadata v%d is not supported", ErrInvalidBlob, md.Version)
	}
	return md, nil
}

// RuntimeVersion is the subset of a runtime's System.Version constant the
// signer checks against.
type RuntimeVersion struct {
	SpecName    string
	SpecVersion uint32
	TxVersion   uint32
}

type runtimeVersionHead struct {
	SpecName         types.Text
	ImplName         types.Text
	AuthoringVersion types.U32
	SpecVersion      types.U32
	ImplVersion      types.U32
	APIs             []runtimeAPI
}

type runtimeAPI struct {
	ID      types.Bytes8
	Version types.U32
}

// ScaleVersion reads the runtime version from the System.Version constant.
// Runtimes predating transaction versions report TxVersion 0.
func ScaleVersion(md *types.Metadata) (RuntimeVersion, error) {
	raw, ok := systemVersion(md)
	if !ok {
		return RuntimeVersion{}, fmt.Errorf("%w: System.Version constant not found", ErrInvalidBlob)
	}
	r := bytes.NewReader(raw)
	dec := scale.NewDecoder(r)
	var head runtimeVersionHead
	if err := dec.Decode(&head); err != nil {
		return RuntimeVersion{}, fmt.Errorf("%w: System.Version: %v", ErrInvalidBlob, err)
	}
	out := RuntimeVersion{SpecName: string(head.SpecName), SpecVersion: uint32(head.SpecVersion)}
	if r.Len() >= 4 {
		var tx types.U32
		if err := dec.Decode(&tx); err != nil {
			return RuntimeVersion{}, fmt.Errorf("%w: System.Version: %v", ErrInvalidBlob, err)
		}
		out.TxVersion = uint32(tx)
	}
	return out, nil
}

func systemVersion(md *types.Metadata) ([]byte, bool) {
	const pallet, constant = "System", "Version"
	switch md.Version {
	case 14:
		for _, p := range md.AsMetadataV14.Pallets {
			if p.Name != pallet {
				continue
			}
			for _, c := range p.Constants {
				if c.Name == constant {
					return c.Value, true
				}
			}
		}
	default:
		for _, m := range LegacyModules(md) {
			if m.Name != pallet {
				continue
			}
			for _, c := range m.Constants {
				if c.Name == constant {
					return c.Value, true
				}
			}
		}
	}
	return nil, false
}

// LegacyModule flattens the per-version module layouts of metadata V10
// through V13.
type LegacyModule struct {
	Name      string
	Index     int
	HasCalls  bool
	Calls     []types.FunctionMetadataV4
	Constants []types.ModuleConstantMetadataV6
}

// LegacyModules lists the modules of V10 to V13 metadata. Before V12 a
// module's call index counts only the modules that have calls.
func LegacyModules(md *types.Metadata) []LegacyModule {
	var out []LegacyModule
	switch md.Version {
	case 10, 11:
		mods := md.AsMetadataV10.Modules
		if md.Version == 11 {
			mods = md.AsMetadataV11.Modules
		}
		next := 0
		for _, m := range mods {
			lm := LegacyModule{Name: string(m.Name), Index: next, HasCalls: m.HasCalls, Calls: m.Calls, Constants: m.Constants}
			if m.HasCalls {
				next++
			}
			out = append(out, lm)
		}
	case 12:
		for _, m := range md.AsMetadataV12.Modules {
			out = append(out, LegacyModule{Name: string(m.Name), Index: int(m.Index), HasCalls: m.HasCalls, Calls: m.Calls, Constants: m.Constants})
		}
	case 13:
		for _, m := range md.AsMetadataV13.Modules {
			out = append(out, LegacyModule{Name: string(m.Name), Index: int(m.Index), HasCalls: m.HasCalls, Calls: m.Calls, Constants: m.Constants})
		}
	}
	return out
}
