// Package session drives one signing session from the first scanned frame
// to a signature: reassembly, classification, sender lookup, decoding,
// warnings that need an explicit override, and confirmation.
//
// A Controller holds at most one session. Starting a new scan while a
// session is active clears it first.
package session
