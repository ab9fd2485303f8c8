// Package fingerprint computes the stable content hash used as the
// exact-duplicate key across every ingestion path.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

func Compute(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
