// Package util provides utility functions for the intake engine.
package util

import (
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// GenerateRandomID generates a random ID with the specified prefix and hex length.
// The returned ID will be in the format: "{prefix}{hex_string}".
func GenerateRandomID(prefix string, hexLength int) string {
	return prefix + GenerateRandomHex(hexLength)
}

// GenerateRandomHex generates a random hexadecimal string of the specified length.
// Uses math/rand/v2; these ids are not security tokens.
func GenerateRandomHex(length int) string {
	if length <= 0 {
		return ""
	}

	const hexChars = "0123456789abcdef"
	var builder strings.Builder
	builder.Grow(length)

	for i := 0; i < length; i++ {
		builder.WriteByte(hexChars[rand.IntN(16)])
	}

	return builder.String()
}

// GenerateMessageID generates a unique transcript message ID with "m_" prefix.
func GenerateMessageID() string {
	return GenerateRandomID("m_", 24)
}

// GenerateSessionID generates a unique intake session identifier.
func GenerateSessionID() string {
	return uuid.NewString()
}

// GenerateConversationID generates the identifier used to key a stored transcript.
func GenerateConversationID() string {
	return uuid.NewString()
}
