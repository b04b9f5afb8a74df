// Package reassembly collects the frames of an animated multipart QR
// transmission and yields the concatenated payload once every part is held.
package reassembly

import (
	"errors"
	"fmt"
	"sync"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/protocol/frame"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrCountMismatch   = errors.New("reassembly: frame count differs from transmission")
	ErrInvalidLeadPart = errors.New("reassembly: invalid first part payload")
)

// FrameError ties a rejected frame to its position in the transmission.
type FrameError struct {
	Index uint16
	Total uint16
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame %d of %d: %v", e.Index, e.Total, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// Status reports reassembly progress after a frame submission.
type Status struct {
	Complete bool
	Received int
	Total    int
	Bytes    []byte
}

// Reassembler holds at most one in-flight transmission.
type Reassembler struct {
	mu        sync.Mutex
	limits    frame.Limits
	total     uint16
	parts     map[uint16][]byte
	signature [32]byte
	signed    bool
	assembled []byte
}

func New(limits frame.Limits) *Reassembler {
	return &Reassembler{
		limits: limits,
		parts:  make(map[uint16][]byte),
	}
}

// Signature identifies a transmission by its whole encoded frame 0.
func Signature(f frame.Frame) [32]byte {
	return blake2b.Sum256(frame.Encode(f))
}

// Submit records f. A resubmitted index overwrites the payload held for it;
// a frame 0 that differs from the one held discards everything collected
// so far.
func (r *Reassembler) Submit(f frame.Frame) (Status, error) {
	if err := r.validate(f); err != nil {
		log.Debug().Err(err).Uint16("index", f.Index).Uint16("count", f.Total).Msg("reassembly.Submit rejected")
		return r.Status(), &FrameError{Index: f.Index, Total: f.Total, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if f.Index == 0 {
		sig := Signature(f)
		if r.total != 0 && (f.Total != r.total || (r.signed && sig != r.signature)) {
			log.Debug().
				Uint16("prev_count", r.total).
				Uint16("count", f.Total).
				Msg("reassembly.Submit new transmission, discarding previous frames")
			r.resetLocked()
		}
		r.signature = sig
		r.signed = true
	} else if r.total != 0 && f.Total != r.total {
		return r.statusLocked(), &FrameError{Index: f.Index, Total: f.Total, Err: fmt.Errorf("%w: %w: count=%d want=%d",
			protocol.ErrMalformedFrame, ErrCountMismatch, f.Total, r.total)}
	}

	if r.total == 0 {
		r.total = f.Total
	}
	r.parts[f.Index] = append([]byte(nil), f.Payload...)
	r.assembled = nil

	if len(r.parts) == int(r.total) {
		size := 0
		for _, p := range r.parts {
			size += len(p)
		}
		buf := make([]byte, 0, size)
		for i := uint16(0); i < r.total; i++ {
			buf = append(buf, r.parts[i]...)
		}
		r.assembled = buf
		log.Debug().Uint16("count", r.total).Int("bytes", len(buf)).Msg("reassembly.Submit transmission complete")
	}
	return r.statusLocked(), nil
}

func (r *Reassembler) validate(f frame.Frame) error {
	switch {
	case f.Total == 0:
		return fmt.Errorf("%w: %w", protocol.ErrMalformedFrame, frame.ErrZeroCount)
	case f.Index >= f.Total:
		return fmt.Errorf("%w: %w: index=%d count=%d", protocol.ErrMalformedFrame, frame.ErrIndexRange, f.Index, f.Total)
	case r.limits.MaxFrames > 0 && f.Total > r.limits.MaxFrames:
		return fmt.Errorf("%w: %w: count=%d", protocol.ErrMalformedFrame, frame.ErrTooManyFrames, f.Total)
	case r.limits.MaxFrameBytes > 0 && len(f.Payload) > r.limits.MaxFrameBytes:
		return fmt.Errorf("%w: %w: len=%d", protocol.ErrMalformedFrame, frame.ErrPayloadTooBig, len(f.Payload))
	}
	if f.Index == 0 && f.Multipart() && len(f.Payload) > 0 && (f.Payload[0] == 0x00 || f.Payload[0] == 0x7b) {
		return fmt.Errorf("%w: %w: lead=0x%02x", protocol.ErrMalformedFrame, ErrInvalidLeadPart, f.Payload[0])
	}
	return nil
}

func (r *Reassembler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statusLocked()
}

func (r *Reassembler) statusLocked() Status {
	st := Status{Received: len(r.parts), Total: int(r.total)}
	if r.assembled != nil {
		st.Complete = true
		st.Bytes = append([]byte(nil), r.assembled...)
	}
	return st
}

// Missing lists the frame indices not yet received, in ascending order.
func (r *Reassembler) Missing() []uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint16, 0, int(r.total)-len(r.parts))
	for i := uint16(0); i < r.total; i++ {
		if _, ok := r.parts[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

// Pending reports whether a transmission is partially received.
func (r *Reassembler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total != 0 && r.assembled == nil
}

func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resetLocked()
}

func (r *Reassembler) resetLocked() {
	r.total = 0
	r.parts = make(map[uint16][]byte)
	r.signature = [32]byte{}
	r.signed = false
	r.assembled = nil
}
