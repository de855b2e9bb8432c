// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrorType represents different types of errors for handling strategies
type ErrorType int

const (
	ErrorTypeUnknown            ErrorType = iota
	ErrorTypeTransient                    // Temporary network issues
	ErrorTypePermanent                    // Invalid credentials, permissions
	ErrorTypeTimeout                      // Request timeouts
	ErrorTypeRateLimit                    // API rate limiting
	ErrorTypeQuotaExceeded                // Account quota or credit exhausted
	ErrorTypeServiceUnavailable           // Upstream downtime or an open breaker
	ErrorTypeInvalidInput                 // Bad request
	ErrorTypeResourceNotFound             // Unknown model or endpoint
	ErrorTypeMalformedResponse            // Upstream answered, but not in the agreed shape
)

// ClassifiedError wraps an error with type information
type ClassifiedError struct {
	Original  error
	Type      ErrorType
	Message   string
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Original == nil {
		return e.Type.String()
	}
	return e.Original.Error()
}

func (e *ClassifiedError) Unwrap() error {
	return e.Original
}

// IsRetryable returns whether this error should be retried
func (e *ClassifiedError) IsRetryable() bool {
	return e.Retryable
}

// HTTPStatusError is returned by HTTP clients for non-2xx responses.
type HTTPStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *HTTPStatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.StatusCode, strings.TrimSpace(body))
}

// NewHTTPStatusError builds an HTTPStatusError, reading Retry-After when present.
func NewHTTPStatusError(resp *http.Response, body []byte) *HTTPStatusError {
	e := &HTTPStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs >= 0 {
			e.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return e
}

// ClassifyError categorizes an error for appropriate handling
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}

	// Check if already classified
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return classifyHTTPStatus(statusErr)
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		// Fail fast: the breaker will let a trial call through once its timeout elapses.
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeServiceUnavailable,
			Message:   err.Error(),
			Retryable: false,
		}
	}

	if errors.Is(err, context.Canceled) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   "Operation canceled",
			Retryable: false,
		}
	}

	// Timeout errors (transient)
	if isTimeoutError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTimeout,
			Message:   fmt.Sprintf("Timeout error: %v", err),
			Retryable: true,
		}
	}

	// Network-related errors (transient)
	if isNetworkError(err) {
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("Network error: %v", err),
			Retryable: true,
		}
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "throttl") || strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeRateLimit,
			Message:   fmt.Sprintf("Rate limit exceeded: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "service unavailable") || strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "bad gateway") || strings.Contains(errStr, "overloaded"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeServiceUnavailable,
			Message:   fmt.Sprintf("Service unavailable: %v", err),
			Retryable: true,
		}

	case strings.Contains(errStr, "quota exceeded") || strings.Contains(errStr, "insufficient credits"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeQuotaExceeded,
			Message:   fmt.Sprintf("Quota exceeded: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "forbidden"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypePermanent,
			Message:   fmt.Sprintf("Authentication/authorization error: %v", err),
			Retryable: false,
		}

	case strings.Contains(errStr, "unexpected eof") || strings.Contains(errStr, "connection reset"):
		return &ClassifiedError{
			Original:  err,
			Type:      ErrorTypeTransient,
			Message:   fmt.Sprintf("Network error: %v", err),
			Retryable: true,
		}
	}

	// Default to unknown, non-retryable
	return &ClassifiedError{
		Original:  err,
		Type:      ErrorTypeUnknown,
		Message:   fmt.Sprintf("Unknown error: %v", err),
		Retryable: false,
	}
}

func classifyHTTPStatus(err *HTTPStatusError) *ClassifiedError {
	c := &ClassifiedError{Original: err, Message: err.Error()}
	switch code := err.StatusCode; {
	case code == http.StatusTooManyRequests:
		c.Type, c.Retryable = ErrorTypeRateLimit, true
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		c.Type, c.Retryable = ErrorTypeTimeout, true
	case code == http.StatusPaymentRequired:
		c.Type = ErrorTypeQuotaExceeded
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		c.Type = ErrorTypePermanent
	case code == http.StatusNotFound:
		c.Type = ErrorTypeResourceNotFound
	case code >= 500:
		c.Type, c.Retryable = ErrorTypeServiceUnavailable, true
	case code >= 400:
		c.Type = ErrorTypeInvalidInput
	default:
		c.Type = ErrorTypeUnknown
	}
	return c
}

// isNetworkError checks if an error is network-related
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}

	// Check for specific network error types
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// Check for connection errors
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH)
}

// isTimeoutError checks if an error is timeout-related
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Check error message for timeout indicators
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// NewTransientError creates a new transient error
func NewTransientError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeTransient,
		Message:   message,
		Retryable: true,
	}
}

// NewPermanentError creates a new permanent error
func NewPermanentError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypePermanent,
		Message:   message,
		Retryable: false,
	}
}

// NewMalformedResponseError marks an upstream reply that could not be parsed.
func NewMalformedResponseError(message string, cause error) *ClassifiedError {
	return &ClassifiedError{
		Original:  cause,
		Type:      ErrorTypeMalformedResponse,
		Message:   message,
		Retryable: true,
	}
}
