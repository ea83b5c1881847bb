package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/go-faster/errors"
)

// Fingerprint returns the hex SHA-256 of an uploaded file.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Matcher compares uploads against a previously recorded fingerprint.
type Matcher struct {
	expected string
}

func NewMatcher(expected string) *Matcher {
	return &Matcher{expected: expected}
}

// Match reports whether data hashes to the expected fingerprint.
func (m *Matcher) Match(data []byte) (bool, error) {
	if m.expected == "" {
		return false, errors.New("expected checksum is not set")
	}
	return Fingerprint(data) == m.expected, nil
}
