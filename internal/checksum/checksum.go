// Package checksum fingerprints note content for change detection and
// optimistic locking.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Of is Sum for text content.
func Of(content string) string {
	return Sum([]byte(content))
}

// ETag returns the quoted digest used in ETag headers.
func ETag(content string) string {
	return strconv.Quote(Of(content))
}

// Normalize strips the weak-validator prefix and surrounding quotes from an
// If-Match value so it can be compared with Sum.
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimPrefix(tag, "W/")
	return strings.Trim(tag, `"`)
}

// Matches reports whether want names the digest of content. An empty want
// matches anything.
func Matches(content, want string) bool {
	want = Normalize(want)
	return want == "" || want == Of(content)
}
