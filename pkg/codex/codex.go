// Package codex generates the shared invite codes handed out to prospective
// organization members. Codes are short enough to read over the phone but
// drawn from a large enough space that guessing one is impractical.
package codex

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// alphabet excludes lookalike characters (0/O, 1/I/L) so codes survive being
// read aloud or handwritten.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// CodeLength is the number of alphabet characters in a generated code
// (excluding the group separator). 10 characters over a 31-symbol alphabet
// gives ~49 bits of entropy.
const CodeLength = 10

const groupSize = 5

// ErrGenerate reports a failure of the underlying random source.
var ErrGenerate = errors.New("codex: failed to generate code")

// NewCode returns a fresh invite code such as "7KQ2M-XW4RD". Collisions are
// astronomically unlikely but callers should still retry on a unique
// constraint violation when persisting.
func NewCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerate, err)
	}

	chars := make([]byte, 0, CodeLength+CodeLength/groupSize)
	for i, b := range buf {
		if i > 0 && i%groupSize == 0 {
			chars = append(chars, '-')
		}
		chars = append(chars, alphabet[int(b)%len(alphabet)])
	}

	return string(chars), nil
}

// Normalize canonicalizes user-entered codes before lookup: trims whitespace
// and uppercases. Separators are kept since codes are stored with them.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the shape produced by NewCode.
func Valid(code string) bool {
	stripped := strings.ReplaceAll(code, "-", "")
	if len(stripped) != CodeLength {
		return false
	}
	for _, r := range stripped {
		if !strings.ContainsRune(alphabet, r) {
			return false
		}
	}
	return true
}
