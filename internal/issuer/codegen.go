package issuer

import (
	"crypto/rand"
	"fmt"
)

const (
	codeAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeSuffixLength = 8
)

// generateCode returns prefix plus a random 8-character uppercase
// alphanumeric suffix. Uniqueness is not checked locally: the platform
// is the source of truth, and a collision there surfaces as a
// retryable rejection.
func generateCode(prefix string) (string, error) {
	buf := make([]byte, codeSuffixLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code token: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + string(buf), nil
}
