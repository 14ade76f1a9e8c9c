package ledger

import (
	"crypto/rand"
	"fmt"
)

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// ShortIDLen is the length of account and category ids. These ids travel
// inside 64-byte chat-button payloads, where a uuid does not fit.
const ShortIDLen = 6

// NewShortID generates a random base36 id for accounts and categories.
func NewShortID() (string, error) {
	buf := make([]byte, ShortIDLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("NewShortID: reading random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(buf), nil
}
