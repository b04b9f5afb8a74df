// Package protocol owns the air-gapped QR signing wire contract.
//
// Ownership boundary:
// - envelope: QR byte-mode segment stripping
// - frame: multipart frame header primitives
// - reassembly: multipart transmission reassembly
// - uos: signing request payload layout
package protocol
