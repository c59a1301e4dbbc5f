// Package sha256 content-addresses generated drafts.
package sha256

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements blog.Hasher. Line endings are normalized to "\n" and
// trailing whitespace trimmed before hashing, so re-saved drafts that only
// differ in those respects share a digest.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of the normalized input.
func (h *Hasher) Hash(data []byte) (string, error) {
	normalized := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	normalized = bytes.TrimRight(normalized, " \t\r\n")
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:]), nil
}
