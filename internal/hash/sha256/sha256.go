// Package sha256 fingerprints saved page markup so journal rows from
// different runs can be compared.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "sha256:"

// Hasher implements crawler.Hasher.
type Hasher struct{}

// New returns a Hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the digest of data as "sha256:<lowercase hex>".
func (*Hasher) Hash(data []byte) (string, error) {
	return Digest(data), nil
}

// Digest returns the digest of data as "sha256:<lowercase hex>".
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return prefix + hex.EncodeToString(sum[:])
}

// Matches reports whether digest, as produced by Digest, describes data. The
// hex part is compared case-insensitively.
func Matches(digest string, data []byte) bool {
	if !strings.HasPrefix(digest, prefix) {
		return false
	}
	return strings.EqualFold(digest, Digest(data))
}
