package service

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConversionFailure = errors.New("currency conversion failed")
	ErrNoActiveAuthority = errors.New("no active authority")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrDuplicateRequest  = errors.New("duplicate request")
)

// Code is a machine-readable failure code.
type Code string

const (
	CodeUnknown           Code = "UNKNOWN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeConversionFailure Code = "CONVERSION_FAILURE"
	CodeNoActiveAuthority Code = "NO_ACTIVE_AUTHORITY"
	CodeInvalidRequest    Code = "INVALID_REQUEST"
	CodeDuplicateRequest  Code = "DUPLICATE_REQUEST"
)

var sentinelCodes = []struct {
	err  error
	code Code
}{
	{ErrNotFound, CodeNotFound},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrConversionFailure, CodeConversionFailure},
	{ErrNoActiveAuthority, CodeNoActiveAuthority},
	{ErrInvalidRequest, CodeInvalidRequest},
	{ErrDuplicateRequest, CodeDuplicateRequest},
}

// GRPCCode maps failure codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	case CodeNotFound:
		return codes.NotFound
	case CodeInsufficientFunds:
		return codes.FailedPrecondition
	case CodeConversionFailure:
		return codes.Internal
	case CodeNoActiveAuthority:
		return codes.Unavailable
	case CodeInvalidRequest:
		return codes.InvalidArgument
	case CodeDuplicateRequest:
		return codes.AlreadyExists
	default:
		return codes.Unknown
	}
}

// Error is a failure attributed to the party that has to hear about it.
type Error struct {
	Code    Code
	PartyID string
	Reason  string
	Cause   error
}

func (e *Error) Error() string {
	if e.PartyID == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.PartyID, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds an Error around one of the package sentinels. cause, when
// set, is kept in the chain alongside the sentinel.
func NewError(sentinel error, partyID, reason string, cause error) *Error {
	code := CodeUnknown
	for _, sc := range sentinelCodes {
		if sc.err == sentinel {
			code = sc.code
			break
		}
	}
	wrapped := sentinel
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &Error{Code: code, PartyID: partyID, Reason: reason, Cause: wrapped}
}

// GetCode extracts the failure code from any error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	for _, sc := range sentinelCodes {
		if errors.Is(err, sc.err) {
			return sc.code
		}
	}
	return CodeUnknown
}
