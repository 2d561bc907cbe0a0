// Package fileid provides deterministic content fingerprints for ingested corpora.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const prefix = "sha256:"

// Fingerprint returns a stable identifier for the raw text of a corpus.
// The same text always yields the same ID.
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(text))
	return prefix + hex.EncodeToString(hash[:])
}
