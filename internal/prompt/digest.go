package prompt

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest fingerprints version content for integrity display. Identical
// content always yields the identical digest; it plays no role in
// deduplication.
func Digest(content string) string {
	h := sha256.Sum256([]byte(content))
	return "sha256:" + hex.EncodeToString(h[:])
}
