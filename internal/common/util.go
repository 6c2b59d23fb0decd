package common

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// MakeRandHexString generates a random hexadecimal string from size random
// bytes. The resulting string is twice as long as size.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MakeWeVoteID generates a permanent external id for a new entity, e.g.
// "wv02voter1a2b3c4d5e6f". The kind segment names the entity type.
func MakeWeVoteID(kind string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "wv02" + kind + id[:12]
}

// FirstNonEmpty returns a if it is non-empty, otherwise b. Used by the merge
// workflow's non-destructive field union: the destination value wins whenever
// it is already set.
func FirstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
