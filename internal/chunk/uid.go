package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// UIDDelimiter joins the identity coordinates of a chunk UID.
const UIDDelimiter = ":"

// MakeUID builds the idempotency key for a chunk from its provenance
// coordinates. The UID must never depend on content: re-ingesting an edited
// source unit has to produce the same UID so the upsert updates the existing
// row instead of creating a duplicate.
func MakeUID(collection, sourceType, sourceID, unitAnchor string, chunkIdx int) string {
	return strings.Join([]string{
		collection,
		sourceType,
		sourceID,
		unitAnchor,
		strconv.Itoa(chunkIdx),
	}, UIDDelimiter)
}

// ContentHash digests the canonical identity tuple of a chunk's text.
// The serialization is order-sensitive; changing any field changes the hash.
// The hash is stored alongside the row so callers can detect unchanged
// content, it is never part of the chunk's identity.
func ContentHash(text, sourceID string, unitIdx int, unitKind, sourceType string) string {
	canonical := fmt.Sprintf("%s\x1f%s\x1f%d\x1f%s\x1f%s", text, sourceID, unitIdx, unitKind, sourceType)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
