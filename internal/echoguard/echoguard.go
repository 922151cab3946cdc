// Package echoguard implements clipboard payload fingerprinting and the
// two-slot dedup state that prevents the sync engine from re-sending content
// it just sent or just received — the loop-prevention mechanism described in
// the core spec.
package echoguard

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the lowercase-hex SHA-256 digest of a payload.
type Fingerprint string

// none is the zero value of Fingerprint and represents an empty slot.
const none Fingerprint = ""

// Sum returns the fingerprint of payload.
func Sum(payload []byte) Fingerprint {
	sum := sha256.Sum256(payload)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

// Guard holds the (lastSent, lastReceived) echo-guard slots for one session.
// It is not safe for concurrent use; the sync engine's single-threaded event
// loop is the only caller.
type Guard struct {
	lastSent     Fingerprint
	lastReceived Fingerprint
}

// New returns a Guard with both slots empty.
func New() *Guard {
	return &Guard{}
}

// ShouldSend reports whether fp differs from both the last-sent and
// last-received slots. A false result means the content is an echo of
// something we just sent (double-notification from CLIPBOARD+PRIMARY
// changing together) or of something we just received (would ping-pong
// back to its origin).
func (g *Guard) ShouldSend(fp Fingerprint) bool {
	return fp != g.lastSent && fp != g.lastReceived
}

// RecordSent records fp as the most recently sent fingerprint. Must be
// called only after the outgoing frame has been fully flushed to the peer.
func (g *Guard) RecordSent(fp Fingerprint) {
	g.lastSent = fp
}

// RecordReceived records fp as the most recently received fingerprint. Must
// be called before any adapter operation that changes a selection using
// that payload, so that the resulting SelectionOwnerChanged notification is
// already suppressed by the time it is observed.
func (g *Guard) RecordReceived(fp Fingerprint) {
	g.lastReceived = fp
}

// Clear resets both slots to empty. Called on client reconnect so that
// content already synced before the disconnect is eligible to be re-sent
// once the new connection is live.
func (g *Guard) Clear() {
	g.lastSent = none
	g.lastReceived = none
}
