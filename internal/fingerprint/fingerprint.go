// Package fingerprint derives the stable identifiers of the duplicate index:
// a content fingerprint over normalized text and a chunk id over the physical
// span that carries it. Both are hex-encoded 128-bit BLAKE2b digests, so two
// runs over identical input always produce identical ids.
package fingerprint

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const digestSize = 16

func sum(data string) string {
	h, err := blake2b.New(digestSize, nil)
	if err != nil {
		// Only reachable with an invalid digest size or key.
		panic(err)
	}
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// Text fingerprints normalized chunk text. Chunks with equal normalized text
// share a fingerprint and therefore a duplicate group.
func Text(normalized string) string {
	return sum(normalized)
}

// ChunkID derives the globally unique chunk identifier from the relative
// path, the half-open byte range, and the content fingerprint.
func ChunkID(path string, startByte, endByte int, fp string) string {
	return sum(fmt.Sprintf("%s:%d:%d:%s", path, startByte, endByte, fp))
}

// AncestorID derives the parent-linkage identifier of a chunk-worthy node
// from its span alone. It deliberately omits the fingerprint: a node that is
// dropped by the size filter still anchors its descendants' parent_id.
func AncestorID(path string, startByte, endByte int) string {
	return sum(fmt.Sprintf("%s:%d:%d", path, startByte, endByte))
}
