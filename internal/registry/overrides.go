package registry

import (
	"sort"

	"github.com/danmuck/coldsign/internal/networks"
)

// VersionedTypes applies to spec versions in [MinVersion, MaxVersion].
// A zero bound is open.
type VersionedTypes struct {
	MinVersion uint32
	MaxVersion uint32
	Types      []TypeDef
}

func (v VersionedTypes) matches(specVersion uint32) bool {
	if v.MinVersion != 0 && specVersion < v.MinVersion {
		return false
	}
	if v.MaxVersion != 0 && specVersion > v.MaxVersion {
		return false
	}
	return true
}

type networkTypes struct {
	alias  string
	chains map[string]string
}

// networkTypesMap maps network path ids to the spec and chain names their
// versioned type overrides are published under.
var networkTypesMap = map[string]networkTypes{
	"centrifuge": {alias: "centrifuge-chain"},
	"kusama":     {},
	"polkadot":   {chains: map[string]string{"westend": "Westend"}},
	"rococo":     {},
}

func accountLookup() []TypeDef {
	return []TypeDef{
		{Name: "Address", Alias: "AccountId"},
		{Name: "LookupSource", Alias: "AccountId"},
	}
}

func multiAddressLookup() []TypeDef {
	return []TypeDef{
		{Name: "Address", Alias: "MultiAddress"},
		{Name: "LookupSource", Alias: "MultiAddress"},
	}
}

var specTypes = map[string][]VersionedTypes{
	"polkadot": {
		{MaxVersion: 27, Types: accountLookup()},
		{MinVersion: 28, Types: multiAddressLookup()},
	},
	"kusama": {
		{MaxVersion: 2027, Types: accountLookup()},
		{MinVersion: 2028, Types: multiAddressLookup()},
	},
	"centrifuge-chain": {
		{Types: accountLookup()},
	},
	"rococo": {
		{MinVersion: 9000, Types: multiAddressLookup()},
	},
}

var chainTypes = map[string][]VersionedTypes{
	"Westend": {
		{MaxVersion: 47, Types: accountLookup()},
		{MinVersion: 48, Types: multiAddressLookup()},
	},
}

const kiltGenesis = "0x411f057b9107718c9624d6aa4a3f23c1653898297f3d4d529d9bb6511a39dd21"

// networkOverrides carries bespoke definitions for networks whose custom
// pallets are not covered by published spec types.
var networkOverrides = map[string][]TypeDef{
	kiltGenesis: {
		{Name: "Address", Alias: "AccountId"},
		{Name: "LookupSource", Alias: "AccountId"},
		{Name: "DelegationNodeIdOf", Alias: "Hash"},
		{Name: "DidVerificationKey", Variants: []Variant{
			{Name: "Ed25519", Type: "[u8; 32]"},
			{Name: "Sr25519", Type: "[u8; 32]"},
			{Name: "Ecdsa", Type: "[u8; 33]"},
		}},
		{Name: "DidEncryptionKey", Variants: []Variant{
			{Name: "X25519", Type: "[u8; 32]"},
		}},
		{Name: "DidCreationDetails", Fields: []Field{
			{Name: "did", Type: "AccountId"},
			{Name: "submitter", Type: "AccountId"},
			{Name: "new_key_agreement_keys", Type: "Vec<DidEncryptionKey>"},
			{Name: "new_attestation_key", Type: "Option<DidVerificationKey>"},
		}},
		{Name: "DidSignature", Variants: []Variant{
			{Name: "Ed25519", Type: "[u8; 64]"},
			{Name: "Sr25519", Type: "[u8; 64]"},
			{Name: "Ecdsa", Type: "[u8; 65]"},
		}},
	},
}

// OverrideTypes returns the type overrides for network at specVersion.
// Bespoke network overrides win outright; otherwise spec types are applied
// before chain types.
func OverrideTypes(network networks.Substrate, specVersion uint32) []TypeDef {
	if bespoke, ok := networkOverrides[network.Key()]; ok {
		return bespoke
	}

	specName, chainName := overrideNames(network.PathID)
	var out []TypeDef
	for _, v := range specTypes[specName] {
		if v.matches(specVersion) {
			out = append(out, v.Types...)
		}
	}
	for _, v := range chainTypes[chainName] {
		if v.matches(specVersion) {
			out = append(out, v.Types...)
		}
	}
	return out
}

func overrideNames(pathID string) (specName, chainName string) {
	names := make([]string, 0, len(networkTypesMap))
	for name := range networkTypesMap {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		nt := networkTypesMap[name]
		spec := name
		if nt.alias != "" {
			spec = nt.alias
		}
		if name == pathID {
			return spec, ""
		}
		if alias, ok := nt.chains[pathID]; ok {
			if alias == "" {
				alias = pathID
			}
			return spec, alias
		}
	}
	return "", ""
}
