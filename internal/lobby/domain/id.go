package domain

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// IDLength is the fixed width of a lobby identifier. Identifiers double as
// the prefix of interaction custom ids, so the width must never change.
const IDLength = 26

// NewID generates a lobby identifier from UUIDv4 bytes encoded as base32
// (RFC 4648) with no padding. The result is 26 characters long and lowercase.
func NewID() (string, error) {
	raw, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw[:])
	return strings.ToLower(encoded), nil
}

// ValidID reports whether value has the shape of a lobby identifier.
func ValidID(value string) bool {
	if len(value) != IDLength {
		return false
	}
	for _, r := range value {
		if (r < 'a' || r > 'z') && (r < '2' || r > '7') {
			return false
		}
	}
	return true
}
