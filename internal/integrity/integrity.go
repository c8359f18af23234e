// Package integrity provides content-addressed digests for plaintext
// document bytes. Digests are computed once at ingest and re-checked after
// the store/retrieve/decrypt round trip.
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrMismatch signals that retrieved content no longer matches its recorded
// digest. It is fatal for the verification attempt in progress: retrying
// cannot repair corrupted bytes.
var ErrMismatch = errors.New("content hash mismatch")

// Digest returns the hex-encoded SHA-256 of data. Same bytes always produce
// the same digest.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matches reports whether data hashes to the recorded digest.
func Matches(digest string, data []byte) bool {
	return subtle.ConstantTimeCompare([]byte(Digest(data)), []byte(digest)) == 1
}

// Check returns ErrMismatch when data does not hash to digest.
func Check(digest string, data []byte) error {
	if !Matches(digest, data) {
		return ErrMismatch
	}
	return nil
}
