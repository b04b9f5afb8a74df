package config

import (
	"fmt"
	"os"
)

func Template() string {
	return defaultTemplate
}

func AccountsTemplate() string {
	return accountsTemplate
}

func WriteTemplate(path string, overwrite bool) error {
	return writeTemplate(path, defaultTemplate, overwrite)
}

func WriteAccountsTemplate(path string, overwrite bool) error {
	return writeTemplate(path, accountsTemplate, overwrite)
}

func writeTemplate(path, body string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(body), 0o600)
}

const defaultTemplate = `[reassembly]
max_frames = 1024
max_frame_bytes = 4096

[decoder]
max_call_depth = 8
# Payloads longer than this are signed as their blake2b-256 hash.
oversized_payload_bytes = 256

[session]
require_version_override = true

[networks]
warm = ["polkadot", "kusama"]

[accounts]
file = "accounts.toml"
`

const accountsTemplate = `# Known signing accounts. scheme is one of ed25519, sr25519, ecdsa, ethereum.
# sealed_secret is printed by "coldsign seal"; leave it out to type the seed
# on every unlock.

[[account]]
name = "alice"
address = "15oF4uVJwmo4TdGW7VfQxNLavjCXviqxT9S1MgbjMNHr6Sp5"
network = "polkadot"
scheme = "sr25519"
`
