package rooms

import (
	"crypto/rand"
	"fmt"
)

// Room codes skip 0, O, 1, I and L so they survive being read aloud.
const (
	alphabet   = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength = 6
	// Largest multiple of len(alphabet) that fits in a byte; bytes at or
	// above it are rejected to keep the draw uniform.
	uniformLimit = 256 / len(alphabet) * len(alphabet)
)

// GenerateCode returns a short shareable room identifier. Uniqueness is not
// checked against the relay; two sessions picking the same code share a room.
func GenerateCode() (string, error) {
	code := make([]byte, 0, codeLength)
	buf := make([]byte, codeLength*2)
	for len(code) < codeLength {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("reading random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= uniformLimit {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == codeLength {
				break
			}
		}
	}
	return string(code), nil
}
