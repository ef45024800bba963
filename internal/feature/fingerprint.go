// Package feature turns parsed opcode features into stable fingerprints and
// maintains the per-project feature database and unique-feature table.
package feature

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"fwsig/internal/asm"
)

// Fingerprint reduces one opcode's feature vectors to a SHA-256 digest in
// lowercase hex. The input is sorted first (idempotent if already sorted)
// and serialized as [[a,b,c],[d,e,f]], so the digest depends only on the
// multiset of vectors, never on map or insertion order.
func Fingerprint(vectors []asm.FeatureVector) string {
	sorted := make([]asm.FeatureVector, len(vectors))
	copy(sorted, vectors)
	asm.SortVectors(sorted)

	var b strings.Builder
	b.WriteByte('[')
	for i, v := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "[%d,%d,%d]", v[0], v[1], v[2])
	}
	b.WriteByte(']')

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// FingerprintAll computes one fingerprint per opcode for a whole listing.
func FingerprintAll(feats asm.OpcodeFeatures) map[string]string {
	hashes := make(map[string]string, len(feats))
	for opcode, vectors := range feats {
		hashes[opcode] = Fingerprint(vectors)
	}
	return hashes
}
