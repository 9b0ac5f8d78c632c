package trace

import (
	"crypto/sha256"
	"encoding/hex"
)

// ComputeTraceHash hashes a canonical trace encoding (e.g. the output of
// ExecutionTrace.CanonicalJSON()) over the canonical sorted order of events,
// not insertion order, so the same execution always yields the same hash
// regardless of scheduling.
func ComputeTraceHash(canonicalEncoding []byte) string {
	if len(canonicalEncoding) == 0 {
		return ""
	}
	sum := sha256.Sum256(canonicalEncoding)
	return hex.EncodeToString(sum[:])
}
