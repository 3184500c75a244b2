// Package idempotency implements the pure idempotency-key helper used to
// tag order requests: spec.md §3 RequestTracker. It only formats and
// parses the terminal's 31-character comment field; it has no state and
// touches no network or clock beyond the key generator's randomness.
package idempotency

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

// KeyLength is the total length of a generated key: "RQ" + 16 hex chars.
const KeyLength = 18

// MaxCommentLength is the terminal's comment field limit.
const MaxCommentLength = 31

// keyPrefix tags every generated idempotency key.
const keyPrefix = "RQ"

// NewKey generates a fresh 18-character idempotency key: "RQ" followed by
// 16 hex characters (8 random bytes).
func NewKey() (string, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("idempotency: generate key: %w", err)
	}
	return keyPrefix + hex.EncodeToString(buf[:]), nil
}

// Mark embeds requestID at the start of originalComment, producing the
// comment to send to the terminal. If originalComment is empty, the result
// is exactly requestID. Otherwise the result is
// "<requestID>|<truncated originalComment>", truncated so the total never
// exceeds MaxCommentLength.
func Mark(originalComment, requestID string) string {
	if originalComment == "" {
		return requestID
	}

	remaining := MaxCommentLength - len(requestID) - 1 // 1 for the "|" separator
	if remaining <= 0 {
		return requestID
	}
	truncated := originalComment
	if len(truncated) > remaining {
		truncated = truncated[:remaining]
	}
	return requestID + "|" + truncated
}

// Extract recovers the idempotency key from a marked comment. It returns
// ("", false) unless: splitting on the first "|" yields a first segment of
// exactly KeyLength characters, starting with "RQ", whose trailing 16
// characters decode as hex.
func Extract(comment string) (string, bool) {
	head := comment
	if idx := strings.IndexByte(comment, '|'); idx >= 0 {
		head = comment[:idx]
	}

	if len(head) != KeyLength {
		return "", false
	}
	if !strings.HasPrefix(head, keyPrefix) {
		return "", false
	}
	if _, err := hex.DecodeString(head[len(keyPrefix):]); err != nil {
		return "", false
	}
	return head, true
}
