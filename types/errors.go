package types

import (
	"errors"
	"fmt"
)

// Error codes. Each maps to a caller-actionable failure kind.
const (
	ErrInvalidPayment          = "INVALID_PAYMENT"
	ErrInvalidRecipient        = "INVALID_RECIPIENT"
	ErrUnresolvedRecipient     = "UNRESOLVED_RECIPIENT"
	ErrUnsupportedAsset        = "UNSUPPORTED_ASSET"
	ErrFeeCeilingExceeded      = "FEE_CEILING_EXCEEDED"
	ErrConnectivityFailure     = "CONNECTIVITY_FAILURE"
	ErrNonceConflict           = "NONCE_CONFLICT"
	ErrLicenseFeePaymentFailed = "LICENSE_FEE_PAYMENT_FAILED"
	ErrInvoiceExpired          = "INVOICE_EXPIRED"
	ErrMalformedInvoice        = "MALFORMED_INVOICE"
	ErrChainMismatch           = "CHAIN_MISMATCH"
	ErrDailyLimitExceeded      = "DAILY_LIMIT_EXCEEDED"
	ErrDispatchFailed          = "DISPATCH_FAILED"
	ErrConfirmationFailed      = "CONFIRMATION_FAILED"
	ErrConfigError             = "CONFIG_ERROR"
)

// Sentinels for errors.Is.
var (
	ErrFeeCeiling     = &PaymentError{Code: ErrFeeCeilingExceeded}
	ErrUnsupported    = &PaymentError{Code: ErrUnsupportedAsset}
	ErrUnresolved     = &PaymentError{Code: ErrUnresolvedRecipient}
	ErrNonce          = &PaymentError{Code: ErrNonceConflict}
	ErrConnectivity   = &PaymentError{Code: ErrConnectivityFailure}
	ErrLicenseFee     = &PaymentError{Code: ErrLicenseFeePaymentFailed}
	ErrExpiredInvoice = &PaymentError{Code: ErrInvoiceExpired}
	ErrBadInvoice     = &PaymentError{Code: ErrMalformedInvoice}
	ErrWrongChain     = &PaymentError{Code: ErrChainMismatch}
	ErrDailyLimit     = &PaymentError{Code: ErrDailyLimitExceeded}
	ErrDispatch       = &PaymentError{Code: ErrDispatchFailed}
	ErrInvalidConfig  = &PaymentError{Code: ErrConfigError}
	ErrBadRecipient   = &PaymentError{Code: ErrInvalidRecipient}
	ErrBadPayment     = &PaymentError{Code: ErrInvalidPayment}
	ErrNotConfirmed   = &PaymentError{Code: ErrConfirmationFailed}
)

// PaymentError is the typed failure returned for expected, caller-actionable
// conditions.
type PaymentError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
	Cause   error          `json:"-"`
}

// ErrorOption customises a PaymentError.
type ErrorOption func(*PaymentError)

// WithCause attaches the underlying error.
func WithCause(err error) ErrorOption {
	return func(e *PaymentError) { e.Cause = err }
}

// WithData attaches a context value.
func WithData(key string, value any) ErrorOption {
	return func(e *PaymentError) {
		if e.Data == nil {
			e.Data = make(map[string]any)
		}
		e.Data[key] = value
	}
}

func NewError(code, message string, opts ...ErrorOption) *PaymentError {
	e := &PaymentError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error { return e.Cause }

// Is matches any PaymentError carrying the same code.
func (e *PaymentError) Is(target error) bool {
	var t *PaymentError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first PaymentError in err's chain.
func CodeOf(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Retryable reports whether a failure kind may succeed on a later attempt.
func Retryable(code string) bool {
	switch code {
	case ErrNonceConflict, ErrConnectivityFailure:
		return true
	}
	return false
}
