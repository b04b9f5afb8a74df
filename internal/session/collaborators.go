package session

import (
	"context"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/registry"
)

//go:generate mockgen -source=collaborators.go -destination=mocks/collaborators.go -package=mocks

// Account is a locally stored account that can sign for an address.
type Account struct {
	Name       string
	Address    string
	NetworkKey string
}

// Accounts looks up stored accounts by the sender address of a request.
type Accounts interface {
	LookupAccount(ctx context.Context, address string) (Account, bool)
}

// Signer signs confirmed payloads with unlocked key material.
type Signer interface {
	Sign(ctx context.Context, data []byte, key keys.Key) ([]byte, error)
}

// Display renders session output. Alerts with Blocking set must be
// acknowledged through Controller.Acknowledge.
type Display interface {
	Progress(p classify.MultipartProgress)
	Review(r Review)
	Alert(a Alert)
}

// Registries returns the type registry for a network, or nil when no
// metadata is available.
type Registries interface {
	Get(networkKey string) *registry.Registry
}
