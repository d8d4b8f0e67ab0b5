// Package checksum computes the content hashes written into edition metadata.
package checksum

import (
	"crypto/sha1" //nolint:gosec // matches the hash marketplaces already index
	"encoding/hex"
)

// DNA returns the hex-encoded SHA-1 digest of a serialized DNA string.
func DNA(dna string) string {
	h := sha1.Sum([]byte(dna)) //nolint:gosec
	return hex.EncodeToString(h[:])
}
