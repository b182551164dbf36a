package payment

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedCategory = errors.New("unsupported payment category")
	ErrInconsistentSession = errors.New("inconsistent checkout session")
	ErrNoMethodSelected    = errors.New("no payment method selected")
	ErrMethodNotFound      = errors.New("payment method not found")
	ErrMethodInactive      = errors.New("payment method is not active")

	// Matched by errors.Is against *GatewayError and *TransportError.
	ErrGateway   = errors.New("gateway error")
	ErrTransport = errors.New("transport error")
)

// GatewayError is a non-2xx answer or a success:false body. Retryable by
// re-invoking the action that triggered it.
type GatewayError struct {
	Op         string
	StatusCode int
	Code       string
	Message    string
}

func (e *GatewayError) Error() string {
	msg := fmt.Sprintf("gateway %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (http %d)", e.StatusCode)
	}
	if e.Code != "" {
		msg += " code=" + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// TransportError wraps network failures on one-shot REST calls.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gateway %s transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
