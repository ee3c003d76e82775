package utils

import (
	"crypto/sha256"
	"fmt"
)

// HashString returns the hex-encoded SHA-256 of input. Used for
// embedding cache keys.
func HashString(input string) string {
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("%x", sum)
}
