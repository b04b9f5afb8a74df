package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/coldsign/internal/classify"
	"github.com/danmuck/coldsign/internal/decoder"
	"github.com/danmuck/coldsign/internal/keys"
	"github.com/danmuck/coldsign/internal/observability"
	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrKeyMismatch  = errors.New("session: key does not match sender")
	ErrMissingDeps  = errors.New("session: missing dependency")
	ErrNotSignable  = errors.New("session: request cannot be signed")
	ErrDeclined     = errors.New("session: declined by reviewer")
	ErrAlertPending = errors.New("session: alerts pending acknowledgement")
)

// Deps are the collaborators a Controller drives.
type Deps struct {
	Classifier  *classify.Classifier
	Reassembler *reassembly.Reassembler
	Networks    classify.Networks
	Registries  Registries
	Decoder     *decoder.Decoder
	Accounts    Accounts
	Signer      Signer
	Display     Display
}

func (d Deps) validate() error {
	switch {
	case d.Classifier == nil:
		return fmt.Errorf("%w: classifier", ErrMissingDeps)
	case d.Reassembler == nil:
		return fmt.Errorf("%w: reassembler", ErrMissingDeps)
	case d.Networks == nil:
		return fmt.Errorf("%w: networks", ErrMissingDeps)
	case d.Registries == nil:
		return fmt.Errorf("%w: registries", ErrMissingDeps)
	case d.Decoder == nil:
		return fmt.Errorf("%w: decoder", ErrMissingDeps)
	case d.Accounts == nil:
		return fmt.Errorf("%w: accounts", ErrMissingDeps)
	case d.Signer == nil:
		return fmt.Errorf("%w: signer", ErrMissingDeps)
	case d.Display == nil:
		return fmt.Errorf("%w: display", ErrMissingDeps)
	}
	return nil
}

type Config struct {
	// RequireVersionOverride makes a spec version mismatch a blocking alert.
	RequireVersionOverride bool
}

func DefaultConfig() Config {
	return Config{RequireVersionOverride: true}
}

// Snapshot is a copy of the controller's current session.
type Snapshot struct {
	SessionID string
	State     State
	Progress  *classify.MultipartProgress
	Review    *Review
	Pending   []Alert
	Err       error
}

// SignedResult is the outcome of a confirmed session.
type SignedResult struct {
	SessionID string
	Scheme    keys.Scheme
	Signature []byte
	// Payload is the hex string rendered back as a QR code.
	Payload string
}

// Controller owns the single signing session. All methods serialize on
// one mutex.
type Controller struct {
	mu   sync.Mutex
	deps Deps
	cfg  Config

	id       string
	state    State
	parsed   classify.ParsedData
	progress *classify.MultipartProgress
	review   *Review
	pending  []Alert
	key      *keys.Key
	lastErr  error
}

func NewController(deps Deps, cfg Config) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	return &Controller{deps: deps, cfg: cfg, state: StateIdle}, nil
}

func (c *Controller) transition(to State) error {
	from := c.state
	if !canTransition(from, to) {
		return invalidTransition(from, "transition to "+string(to))
	}
	c.state = to
	observability.RecordTransition(string(from), string(to))
	log.Debug().Str("session", c.id).Str("from", string(from)).Str("to", string(to)).Msg("session.transition")
	return nil
}

func (c *Controller) fail(alert Alert) error {
	c.lastErr = alert.Err
	if err := c.transition(StateError); err != nil {
		return err
	}
	c.deps.Display.Alert(alert)
	return alert.Err
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{SessionID: c.id, State: c.state, Err: c.lastErr}
	if c.progress != nil {
		p := *c.progress
		p.Missing = append([]uint16(nil), p.Missing...)
		s.Progress = &p
	}
	if c.review != nil {
		r := *c.review
		s.Review = &r
	}
	s.Pending = append([]Alert(nil), c.pending...)
	return s
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Clear discards the session from any state.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Controller) clearLocked() {
	if c.state == StateIdle || c.state == StateCleared {
		c.deps.Reassembler.Reset()
		return
	}
	c.deps.Reassembler.Reset()
	c.discardLocked()
	_ = c.transition(StateCleared)
	log.Info().Str("session", c.id).Msg("session.Clear")
}

// discardLocked drops every session-scoped value and wipes key material.
func (c *Controller) discardLocked() {
	if c.key != nil {
		c.key.Wipe()
		c.key = nil
	}
	c.parsed = nil
	c.progress = nil
	c.review = nil
	c.pending = nil
	c.lastErr = nil
}

// Scan feeds one scanned code into the session. A scan arriving while a
// session is past the scanning stage starts a new session.
func (c *Controller) Scan(ctx context.Context, scan classify.Scan) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateScanning {
		if c.state != StateIdle && c.state != StateCleared {
			c.clearLocked()
		}
		c.id = uuid.NewString()
		c.lastErr = nil
		if err := c.transition(StateScanning); err != nil {
			return c.snapshotLocked(), err
		}
		log.Info().Str("session", c.id).Msg("session.Scan started")
	}

	parsed, err := c.deps.Classifier.Classify(scan)
	if err != nil {
		return c.snapshotLocked(), c.scanError(err)
	}
	if progress, ok := parsed.(*classify.MultipartProgress); ok {
		c.progress = progress
		_ = c.transition(StateScanning)
		c.deps.Display.Progress(*progress)
		return c.snapshotLocked(), nil
	}

	c.progress = nil
	c.parsed = parsed
	if err := c.transition(StateClassified); err != nil {
		return c.snapshotLocked(), err
	}
	return c.snapshotLocked(), c.classified(ctx, parsed)
}

// scanError keeps the session scanning for malformed frames and fails it
// for anything else.
func (c *Controller) scanError(err error) error {
	if errors.Is(err, protocol.ErrMalformedFrame) {
		c.lastErr = err
		alert := errorAlert(AlertMalformed, err)
		var fe *reassembly.FrameError
		if errors.As(err, &fe) {
			alert = malformedFrameAlert(fe, err)
		}
		c.deps.Display.Alert(alert)
		log.Debug().Str("session", c.id).Int("frame", alert.Frame).Err(err).Msg("session.Scan malformed frame")
		return err
	}
	if errors.Is(err, classify.ErrUnknownNetwork) {
		return c.fail(errorAlert(AlertUnknownNetwork, err))
	}
	return c.fail(errorAlert(AlertMalformed, err))
}

func (c *Controller) reject(alert Alert) error {
	c.lastErr = alert.Err
	if err := c.transition(StateRejected); err != nil {
		return err
	}
	c.deps.Display.Alert(alert)
	log.Info().Str("session", c.id).Str("reason", string(alert.Kind)).Msg("session.Scan rejected")
	return alert.Err
}

func (c *Controller) classified(ctx context.Context, parsed classify.ParsedData) error {
	var sender, networkKey string
	switch p := parsed.(type) {
	case *classify.AddressOnly:
		return c.reject(addressScannedAlert())
	case *classify.NetworkAddRequest:
		return c.reject(networkAddAlert())
	case *classify.SubstrateSigningRequest:
		sender, networkKey = p.SenderAddress, p.NetworkKey
	case *classify.EthereumSigningRequest:
		sender = p.Sender
	case *classify.LegacyEthereumRequest:
		sender = p.Sender
	default:
		return c.fail(errorAlert(AlertMalformed, fmt.Errorf("%w: %s", ErrNotSignable, parsed.Kind())))
	}

	account, ok := c.deps.Accounts.LookupAccount(ctx, sender)
	if !ok {
		return c.fail(noSenderAlert(sender))
	}
	c.review = &Review{Kind: parsed.Kind(), Sender: sender, Account: account, NetworkKey: networkKey}
	if network, ok := c.deps.Networks.Network(networkKey); ok {
		c.review.NetworkTitle = network.Title
	}
	return c.transition(StateAwaitingSenderUnlock)
}

// requestKey is the public key or address the unlocked key must match.
func requestKey(parsed classify.ParsedData) ([]byte, keys.Scheme, error) {
	switch p := parsed.(type) {
	case *classify.SubstrateSigningRequest:
		scheme, err := keys.SchemeFor(p.Request)
		return p.Request.PublicKey, scheme, err
	case *classify.EthereumSigningRequest:
		return p.Request.PublicKey, keys.SchemeEthereum, nil
	case *classify.LegacyEthereumRequest:
		return p.Request.Account.Bytes(), keys.SchemeEthereum, nil
	default:
		return nil, 0, fmt.Errorf("%w: %s", ErrNotSignable, parsed.Kind())
	}
}

// UnlockSender supplies the sender's key material and decodes the request
// for review.
func (c *Controller) UnlockSender(ctx context.Context, key keys.Key) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingSenderUnlock {
		return c.snapshotLocked(), invalidTransition(c.state, "unlock sender")
	}
	want, scheme, err := requestKey(c.parsed)
	if err != nil {
		return c.snapshotLocked(), err
	}
	if key.Scheme != scheme {
		return c.snapshotLocked(), fmt.Errorf("%w: scheme %s want %s", ErrKeyMismatch, key.Scheme, scheme)
	}
	signer, err := keys.NewSigner(key)
	if err != nil {
		return c.snapshotLocked(), err
	}
	if !bytes.Equal(signer.PublicKey(), want) {
		return c.snapshotLocked(), ErrKeyMismatch
	}
	held := keys.Key{Scheme: key.Scheme, Secret: append([]byte(nil), key.Secret...)}
	c.key = &held

	c.decodeLocked()
	if err := c.transition(StateDecoded); err != nil {
		return c.snapshotLocked(), err
	}
	c.deps.Display.Review(*c.review)
	for _, a := range c.pending {
		c.deps.Display.Alert(a)
	}
	next := StateAwaitingConfirmation
	if len(c.pending) > 0 {
		next = StateAwaitingOverride
	}
	if err := c.transition(next); err != nil {
		return c.snapshotLocked(), err
	}
	return c.snapshotLocked(), nil
}

func (c *Controller) decodeLocked() {
	switch p := c.parsed.(type) {
	case *classify.SubstrateSigningRequest:
		if p.IsTransaction() {
			c.decodeExtrinsic(p)
			c.review.Hashed = p.IsHashedMessage
			return
		}
		c.review.Hashed = p.IsHashedMessage
		c.review.Message, c.review.MessageIsText = messageReview(p.Payload, p.IsHashedMessage)
	case *classify.EthereumSigningRequest:
		if p.Tx != nil {
			c.review.EthereumTx = p.Tx
			c.review.Description = p.Tx.Summary()
			return
		}
		c.review.Message, c.review.MessageIsText = messageReview(p.Message, false)
	case *classify.LegacyEthereumRequest:
		c.review.Description = p.Description
		if p.Request.Tx != nil {
			c.review.EthereumTx = p.Request.Tx
			return
		}
		c.review.Message, c.review.MessageIsText = messageReview(p.Request.Message, false)
	}
}

func (c *Controller) decodeExtrinsic(req *classify.SubstrateSigningRequest) {
	network := c.review.NetworkTitle
	reg := c.deps.Registries.Get(req.NetworkKey)
	if reg == nil {
		fb := decoder.Fallback(req.Payload, protocol.ErrMissingMetadata)
		c.review.Fallback = &fb
		c.pending = append(c.pending, missingMetadataAlert(network))
		observability.RecordDecode(network, "missing_metadata")
		return
	}

	ext, err := c.deps.Decoder.Decode(reg, req.Payload)
	payloadSpec := uint32(0)
	if err != nil {
		fb := decoder.Fallback(req.Payload, err)
		c.review.Fallback = &fb
		if fb.HasEnvelope {
			payloadSpec = fb.SpecVersion
		}
		c.pending = append(c.pending, decodeErrorAlert(err))
		observability.RecordDecode(network, "fallback")
		log.Warn().Str("session", c.id).Str("network", network).Err(err).Msg("session.UnlockSender decode failed")
	} else {
		c.review.Extrinsic = ext
		payloadSpec = ext.SpecVersion
		observability.RecordDecode(network, "decoded")
	}

	if payloadSpec > reg.SpecVersion() {
		alert := versionMismatchAlert(network, payloadSpec, reg.SpecVersion(), c.cfg.RequireVersionOverride)
		if alert.Blocking {
			// The mismatch is the first thing the reviewer must answer.
			c.pending = append([]Alert{alert}, c.pending...)
		} else {
			c.deps.Display.Alert(alert)
		}
		log.Warn().
			Str("session", c.id).
			Uint32("payload_spec", payloadSpec).
			Uint32("metadata_spec", reg.SpecVersion()).
			Msg("session.UnlockSender spec version mismatch")
	}
}

// Acknowledge answers the oldest pending alert. Declining clears the
// session.
func (c *Controller) Acknowledge(proceed bool) (Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateAwaitingOverride || len(c.pending) == 0 {
		return c.snapshotLocked(), invalidTransition(c.state, "acknowledge")
	}
	alert := c.pending[0]
	if !proceed {
		log.Info().Str("session", c.id).Str("alert", string(alert.Kind)).Msg("session.Acknowledge declined")
		c.clearLocked()
		return c.snapshotLocked(), fmt.Errorf("%w: %s", ErrDeclined, alert.Kind)
	}
	c.pending = c.pending[1:]
	log.Warn().Str("session", c.id).Str("alert", string(alert.Kind)).Msg("session.Acknowledge overridden")
	if len(c.pending) == 0 {
		if err := c.transition(StateAwaitingConfirmation); err != nil {
			return c.snapshotLocked(), err
		}
	}
	return c.snapshotLocked(), nil
}

// signingData returns the bytes handed to the signer.
func signingData(parsed classify.ParsedData) ([]byte, error) {
	switch p := parsed.(type) {
	case *classify.SubstrateSigningRequest:
		return p.SigningData, nil
	case *classify.EthereumSigningRequest:
		return p.Digest, nil
	case *classify.LegacyEthereumRequest:
		return p.Request.Digest(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrNotSignable, parsed.Kind())
	}
}

// Confirm signs the reviewed payload. On success the session moves to
// Signed and its data is discarded.
func (c *Controller) Confirm(ctx context.Context) (SignedResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateAwaitingOverride {
		return SignedResult{}, fmt.Errorf("%w: %w", ErrAlertPending, invalidTransition(c.state, "confirm"))
	}
	if c.state != StateAwaitingConfirmation || c.key == nil {
		return SignedResult{}, invalidTransition(c.state, "confirm")
	}
	data, err := signingData(c.parsed)
	if err != nil {
		return SignedResult{}, err
	}
	sig, err := c.deps.Signer.Sign(ctx, data, *c.key)
	if err != nil {
		return SignedResult{}, c.fail(errorAlert(AlertMalformed, fmt.Errorf("session: sign: %w", err)))
	}
	result := SignedResult{
		SessionID: c.id,
		Scheme:    c.key.Scheme,
		Signature: sig,
		Payload:   keys.EncodeResult(c.key.Scheme, sig),
	}
	if err := c.transition(StateSigned); err != nil {
		return SignedResult{}, err
	}
	c.deps.Reassembler.Reset()
	c.discardLocked()
	log.Info().Str("session", c.id).Str("scheme", result.Scheme.String()).Msg("session.Confirm signed")
	return result, nil
}
