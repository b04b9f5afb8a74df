package session

import (
	"fmt"

	"github.com/danmuck/coldsign/internal/protocol"
	"github.com/danmuck/coldsign/internal/protocol/reassembly"
)

type AlertKind string

const (
	AlertAddressScanned  AlertKind = "address_scanned"
	AlertNetworkAdd      AlertKind = "network_add"
	AlertNoSender        AlertKind = "no_sender"
	AlertUnknownNetwork  AlertKind = "unknown_network"
	AlertMalformed       AlertKind = "malformed"
	AlertDecodeError     AlertKind = "decode_error"
	AlertMissingMetadata AlertKind = "missing_metadata"
	AlertVersionMismatch AlertKind = "version_mismatch"
)

// Alert is a message for the reviewer. Blocking alerts stay pending until
// acknowledged; Actions names the choices offered, proceed first.
type Alert struct {
	Kind     AlertKind
	Title    string
	Message  string
	Actions  []string
	Blocking bool
	// Frame is the 1-based position of a rejected QR frame, 0 when the
	// alert is not about a single frame.
	Frame    int
	Err      error
}

func addressScannedAlert() Alert {
	return Alert{
		Kind:    AlertAddressScanned,
		Title:   "Error",
		Message: "This QR code is an address. Scan a signing request instead.",
		Actions: []string{"OK"},
		Err:     fmt.Errorf("%w: address scanned", protocol.ErrUnsupportedTransmission),
	}
}

func networkAddAlert() Alert {
	return Alert{
		Kind:    AlertNetworkAdd,
		Title:   "Not supported",
		Message: "Adding a network is not supported as it is considered insecure.",
		Actions: []string{"OK"},
		Err:     fmt.Errorf("%w: network add request", protocol.ErrUnsupportedTransmission),
	}
}

func noSenderAlert(address string) Alert {
	return Alert{
		Kind:    AlertNoSender,
		Title:   "Error",
		Message: fmt.Sprintf("No account found for sender %s. Add the account and scan again.", address),
		Actions: []string{"OK"},
		Err:     fmt.Errorf("%w: %s", protocol.ErrNoSenderFound, address),
	}
}

func errorAlert(kind AlertKind, err error) Alert {
	return Alert{Kind: kind, Title: "Error", Message: err.Error(), Actions: []string{"OK"}, Err: err}
}

func malformedFrameAlert(fe *reassembly.FrameError, err error) Alert {
	return Alert{
		Kind:    AlertMalformed,
		Title:   "Error",
		Message: fmt.Sprintf("Frame %d of %d could not be used. Scan that QR code again.\n\nError: %v", int(fe.Index)+1, fe.Total, fe.Err),
		Actions: []string{"OK"},
		Frame:   int(fe.Index) + 1,
		Err:     err,
	}
}

func decodeErrorAlert(err error) Alert {
	return Alert{
		Kind:  AlertDecodeError,
		Title: "Could not decode method with available metadata.",
		Message: "Signing something you do not understand is inherently unsafe. " +
			"Do not sign this extrinsic unless you know what you are doing, or update the signer " +
			"to be able to decode this message.\n\nError: " + err.Error(),
		Actions:  []string{"Proceed", "Back"},
		Blocking: true,
		Err:      err,
	}
}

func missingMetadataAlert(networkTitle string) Alert {
	return Alert{
		Kind:  AlertMissingMetadata,
		Title: "Could not decode method with available metadata.",
		Message: fmt.Sprintf("No metadata is available for %s. Only the raw payload can be shown. "+
			"Signing something you do not understand is inherently unsafe.", networkTitle),
		Actions:  []string{"Proceed", "Back"},
		Blocking: true,
		Err:      fmt.Errorf("%w: %s", protocol.ErrMissingMetadata, networkTitle),
	}
}

func versionMismatchAlert(networkTitle string, payload, local uint32, blocking bool) Alert {
	return Alert{
		Kind:  AlertVersionMismatch,
		Title: "Warning",
		Message: fmt.Sprintf("This signer is not up to date with the latest version of the %s network "+
			"(payload spec %d, local metadata %d).\n\n"+
			"The transaction details can be wrong or meaningless.\n\n"+
			"You should stop right here, cancel this transaction by choosing \"Back\" and update the signer.\n\n"+
			"If you proceed you may put your funds at risk.", networkTitle, payload, local),
		Actions:  []string{"Proceed", "Back"},
		Blocking: blocking,
		Err:      fmt.Errorf("%w: payload %d > metadata %d", protocol.ErrDecodeMismatch, payload, local),
	}
}
