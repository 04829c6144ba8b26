package broker

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common broker errors
var (
	ErrBrokerNotFound     = errors.New("broker not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotConnected       = errors.New("broker not connected")
	ErrInvalidSymbol      = errors.New("invalid symbol")
	ErrRateLimitExceeded  = errors.New("rate limit exceeded")
	ErrAPIError           = errors.New("API error")
	ErrNetworkError       = errors.New("network error")
	ErrTimeout            = errors.New("request timeout")
)

// BrokerError represents a broker-specific error
type BrokerError struct {
	Broker  string `json:"broker"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *BrokerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Broker, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Broker, e.Code, e.Message)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// NewBrokerError creates a new broker error
func NewBrokerError(broker, code, message string, err error) *BrokerError {
	return &BrokerError{
		Broker:  broker,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes carried by BrokerError
const (
	CodeRateLimit          = "RATE_LIMIT"
	CodeNetwork            = "NETWORK_ERROR"
	CodeTimeout            = "TIMEOUT"
	CodeServer             = "SERVER_ERROR"
	CodeTimestamp          = "TIMESTAMP_OUT_OF_WINDOW"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidSymbol      = "INVALID_SYMBOL"
)

// IsTemporaryError reports whether the exchange, not the request, failed:
// rate limits, network failures, timeouts and exchange server errors
func IsTemporaryError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrRateLimitExceeded) ||
		errors.Is(err, ErrNetworkError) ||
		errors.Is(err, ErrTimeout) {
		return true
	}

	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) {
		switch brokerErr.Code {
		case CodeRateLimit, CodeNetwork, CodeTimeout, CodeServer:
			return true
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRetryableError reports whether repeating the same call may succeed.
// Temporary errors are retryable, and so is a request rejected for a stale
// timestamp since the retry is signed again. Canceled calls and rejected
// credentials or symbols are never retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidSymbol) {
		return false
	}

	var brokerErr *BrokerError
	if errors.As(err, &brokerErr) && brokerErr.Code == CodeTimestamp {
		return true
	}
	return IsTemporaryError(err)
}
