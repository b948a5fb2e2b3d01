// Package messaging provides the outbound notification channel used to send
// submission confirmations.
package messaging

import (
	"context"
	"errors"
	"regexp"
)

// ErrNotConfigured is returned by the noop service when a send is attempted.
var ErrNotConfigured = errors.New("messaging service not configured")

// phoneNumberRegex matches everything except digits, for canonicalization.
var phoneNumberRegex = regexp.MustCompile(`[^0-9]`)

// Service defines a pluggable confirmation delivery abstraction.
type Service interface {
	// ValidateAndCanonicalizeRecipient validates and canonicalizes a recipient identifier.
	// Returns the canonicalized recipient and an error if validation fails.
	ValidateAndCanonicalizeRecipient(recipient string) (string, error)

	// SendMessage sends a message to a recipient.
	SendMessage(ctx context.Context, to string, body string) error
}

// NoopService discards confirmations. Used when no messaging credentials are
// configured; submissions still succeed without a confirmation channel.
type NoopService struct{}

func NewNoopService() *NoopService {
	return &NoopService{}
}

func (s *NoopService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (s *NoopService) SendMessage(ctx context.Context, to string, body string) error {
	return ErrNotConfigured
}
