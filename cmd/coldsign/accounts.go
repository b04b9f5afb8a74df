package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/coldsign/internal/config"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/networks"
	"github.com/danmuck/coldsign/internal/session"
)

type accountEntry struct {
	account session.Account
	scheme  keys.Scheme
	sealed  string
}

// accountBook is the static account list loaded from the accounts file.
type accountBook struct {
	byAddress map[string]accountEntry
}

var _ session.Accounts = (*accountBook)(nil)

func newAccountBook(accounts []config.Account, catalog *networks.Catalog) (*accountBook, error) {
	book := &accountBook{byAddress: make(map[string]accountEntry, len(accounts))}
	for _, a := range accounts {
		scheme, err := keys.ParseScheme(a.Scheme)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", a.Name, err)
		}
		networkKey := ""
		if scheme != keys.SchemeEthereum {
			networkKey, err = catalog.Resolve(a.Network)
			if err != nil {
				return nil, fmt.Errorf("account %s: %w", a.Name, err)
			}
		}
		addr := normalizeAddress(a.Address)
		book.byAddress[addr] = accountEntry{
			account: session.Account{Name: a.Name, Address: a.Address, NetworkKey: networkKey},
			scheme:  scheme,
			sealed:  a.SealedSecret,
		}
	}
	return book, nil
}

// normalizeAddress lowercases hex addresses so checksummed and plain forms
// match. SS58 strings are case sensitive.
func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		return strings.ToLower(addr)
	}
	return addr
}

func (b *accountBook) LookupAccount(_ context.Context, address string) (session.Account, bool) {
	e, ok := b.byAddress[normalizeAddress(address)]
	return e.account, ok
}

func (b *accountBook) entry(address string) (accountEntry, bool) {
	e, ok := b.byAddress[normalizeAddress(address)]
	return e, ok
}

func (b *accountBook) Len() int {
	return len(b.byAddress)
}
