package protocol

import "errors"

// Error taxonomy shared by every stage of the signing pipeline. Stage
// specific errors wrap one of these so callers can branch with errors.Is.
var (
	ErrMalformedFrame          = errors.New("protocol: malformed frame")
	ErrUnsupportedTransmission = errors.New("protocol: unsupported transmission")
	ErrMissingMetadata         = errors.New("protocol: missing metadata")
	ErrDecodeMismatch          = errors.New("protocol: metadata spec version mismatch")
	ErrNoSenderFound           = errors.New("protocol: no sender found")
	ErrDecodeError             = errors.New("protocol: decode error")
)

// Kind returns a stable label for err's taxonomy class, or "other".
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrMalformedFrame):
		return "malformed_frame"
	case errors.Is(err, ErrUnsupportedTransmission):
		return "unsupported_transmission"
	case errors.Is(err, ErrMissingMetadata):
		return "missing_metadata"
	case errors.Is(err, ErrDecodeMismatch):
		return "decode_mismatch"
	case errors.Is(err, ErrNoSenderFound):
		return "no_sender_found"
	case errors.Is(err, ErrDecodeError):
		return "decode_error"
	default:
		return "other"
	}
}
