package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Error is the unified error interface returned by provider adapters and the client.
// Two families exist: transport failures (StatusCode()==0, the service was never
// reached) and rejections (non-2xx status from the service). The dispatcher treats
// both identically as recoverable.
type Error interface {
	error
	Provider() string
	StatusCode() int
}

type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + strings.TrimSpace(e.Message)
}
func (e *ConfigurationError) Provider() string { return "" }
func (e *ConfigurationError) StatusCode() int  { return 0 }

type errorBase struct {
	provider   string
	statusCode int
	message    string
}

func (e *errorBase) Error() string {
	msg := strings.TrimSpace(e.message)
	if msg == "" {
		msg = "request failed"
	}
	if e.statusCode == 0 {
		return fmt.Sprintf("%s unavailable: %s", e.provider, msg)
	}
	return fmt.Sprintf("%s error (status=%d): %s", e.provider, e.statusCode, msg)
}
func (e *errorBase) Provider() string { return e.provider }
func (e *errorBase) StatusCode() int  { return e.statusCode }

// UnavailableError means the generation service could not be reached at all:
// connection refused, DNS failure, timeout, canceled context.
type UnavailableError struct{ errorBase }

// RejectedError means the generation service answered with a non-success status.
type RejectedError struct{ errorBase }

// NewRejectedError builds a RejectedError from an HTTP-style status and body excerpt.
func NewRejectedError(provider string, statusCode int, message string) error {
	return &RejectedError{errorBase{
		provider:   strings.TrimSpace(provider),
		statusCode: statusCode,
		message:    message,
	}}
}

// WrapTransportError classifies a transport-level failure (including context
// deadline and cancellation) as an UnavailableError.
func WrapTransportError(provider string, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "request deadline exceeded"
	case errors.Is(err, context.Canceled):
		msg = "request canceled"
	default:
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			msg = "network timeout: " + msg
		}
	}
	return &UnavailableError{errorBase{provider: strings.TrimSpace(provider), message: msg}}
}

func IsUnavailable(err error) bool {
	var e *UnavailableError
	return errors.As(err, &e)
}

func IsRejected(err error) bool {
	var e *RejectedError
	return errors.As(err, &e)
}
