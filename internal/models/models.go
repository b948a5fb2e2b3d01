// Package models defines the core data structures for the intake engine.
//
// It includes types for intake steps, sessions, transcripts, and the payloads
// exchanged with the external case-management API, which are shared across modules.
package models

import "errors"

// Validation constants for input validation
const (
	// MaxAnswerLength defines the maximum allowed length for a single answer
	MaxAnswerLength = 4096
	// UnknownDateSentinel is the literal value a date step with AllowUnknown accepts
	// in place of a calendar date. It is stored and transmitted verbatim; downstream
	// consumers must treat it as "value not collected", never as a date.
	UnknownDateSentinel = "unknown"
)

// Error variables for better error handling and testability
var (
	ErrEmptyAnswer          = errors.New("answer cannot be empty")
	ErrAnswerTooLong        = errors.New("answer exceeds maximum length")
	ErrInvalidChoice        = errors.New("answer is not one of the offered choices")
	ErrUnknownNotAllowed    = errors.New("this step does not accept \"unknown\"")
	ErrInvalidFlowType      = errors.New("invalid flow type")
	ErrSessionComplete      = errors.New("session is complete; no further answers accepted")
	ErrSessionIncomplete    = errors.New("session is not complete; cannot submit")
	ErrSubmissionInFlight   = errors.New("a submission is already in flight for this session")
	ErrAlreadySubmitted     = errors.New("session has already been submitted")
	ErrSubmissionRejected   = errors.New("case creation was rejected")
	ErrSessionNotFound      = errors.New("session not found")
	ErrMissingCaseReference = errors.New("conversation payload requires a case reference")
)

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}
