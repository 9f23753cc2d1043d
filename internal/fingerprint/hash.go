// Package fingerprint turns decoded PCM audio into the landmark hashes the
// index stores and the matcher compares against.
package fingerprint

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the width, in bytes, of a stored fingerprint hash (80 bits,
// FINGERPRINT_REDUCTION = 20 hex characters).
const HashSize = 10

// Hash is a truncated SHA-1 digest over a constellation pair's
// "f1|f2|dt" triple.
type Hash [HashSize]byte

// String renders the hash as 20 uppercase hex characters, the transport
// format used at API/store boundaries.
func (h Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// ParseHash parses the 20-character hex rendering produced by String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("fingerprint: invalid hash %q: %w", s, err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("fingerprint: invalid hash length %q: want %d bytes, got %d", s, HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// hashPair computes the landmark hash for an anchor/target frequency-bin
// pair separated by dt frames, per spec: SHA-1("f1|f2|dt") truncated to
// the first 20 hex characters (10 bytes).
func hashPair(f1, f2, dt int) Hash {
	sum := sha1.Sum([]byte(fmt.Sprintf("%d|%d|%d", f1, f2, dt)))
	var h Hash
	copy(h[:], sum[:HashSize])
	return h
}
