package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/coldsign/internal/keys"
	"github.com/pelletier/go-toml/v2"
)

// Account is one known signing account. Network is a path id or genesis
// hash; Ethereum accounts leave it empty. SealedSecret is the output of
// keys.Seal; without it the raw seed is asked for on unlock.
type Account struct {
	Name         string `toml:"name"`
	Address      string `toml:"address"`
	Network      string `toml:"network"`
	Scheme       string `toml:"scheme"`
	SealedSecret string `toml:"sealed_secret"`
}

type accountsFile struct {
	Accounts []Account `toml:"account"`
}

func LoadAccounts(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("accounts load failed (%s): %w", path, err)
	}
	var file accountsFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("accounts parse failed (%s): %w", path, err)
	}
	seen := make(map[string]struct{}, len(file.Accounts))
	for i, acct := range file.Accounts {
		if err := ValidateAccount(acct); err != nil {
			return nil, fmt.Errorf("account[%d]: %w", i, err)
		}
		if _, dup := seen[acct.Address]; dup {
			return nil, fmt.Errorf("%w: duplicate account address %s", ErrInvalidConfig, acct.Address)
		}
		seen[acct.Address] = struct{}{}
	}
	return file.Accounts, nil
}

func ValidateAccount(acct Account) error {
	if strings.TrimSpace(acct.Name) == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidConfig)
	}
	if strings.TrimSpace(acct.Address) == "" {
		return fmt.Errorf("%w: account address is required", ErrInvalidConfig)
	}
	scheme, err := keys.ParseScheme(acct.Scheme)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if scheme != keys.SchemeEthereum && strings.TrimSpace(acct.Network) == "" {
		return fmt.Errorf("%w: substrate account %s needs a network", ErrInvalidConfig, acct.Name)
	}
	if acct.SealedSecret != "" && !strings.HasPrefix(acct.SealedSecret, "coldsign1$") {
		return fmt.Errorf("%w: account %s: %w", ErrInvalidConfig, acct.Name, keys.ErrMalformedSealed)
	}
	return nil
}
