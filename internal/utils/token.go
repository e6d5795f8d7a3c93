package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// cancellationTokenBytes is the entropy of a guest cancellation token.
// 32 random bytes keeps the token unguessable while the URL-safe base64
// form stays short enough for a cancellation link.
const cancellationTokenBytes = 32

// GenerateCancellationToken returns a URL-safe random token used for
// unauthenticated guest self-service cancellation.
func GenerateCancellationToken() (string, error) {
	buf := make([]byte, cancellationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate cancellation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
