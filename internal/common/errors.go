package common

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Scan errors. ErrLookupFailure is the parent of ErrNetwork and ErrNotFound
// when they come from a product lookup (see LookupError).
var (
	ErrLookupFailure  = errors.New("product lookup failed")
	ErrNetwork        = errors.New("network error")
	ErrTimeout        = errors.New("operation timed out")
	ErrCaptureInvalid = errors.New("captured image is invalid")
	ErrSurfaceActive  = errors.New("another capture surface is active")
	ErrBadTransition  = errors.New("transition not allowed from current state")
	ErrSessionClosed  = errors.New("scan session closed")
)

// LookupError classifies a failed product lookup as ErrNetwork or ErrNotFound.
type LookupError struct {
	Kind    error
	Barcode string
	Cause   error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lookup %s: %v: %v", e.Barcode, e.Kind, e.Cause)
	}
	return fmt.Sprintf("lookup %s: %v", e.Barcode, e.Kind)
}

func (e *LookupError) Unwrap() []error {
	errs := []error{e.Kind, ErrLookupFailure}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// NotFoundLookup reports that the source answered but has no record.
func NotFoundLookup(barcode string) error {
	return &LookupError{Kind: ErrNotFound, Barcode: barcode}
}

// NetworkLookup wraps a transport or upstream failure.
func NetworkLookup(barcode string, cause error) error {
	return &LookupError{Kind: ErrNetwork, Barcode: barcode, Cause: cause}
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf maps an error onto a gRPC code.
func CodeOf(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	case errors.Is(err, ErrNetwork):
		return codes.Unavailable
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation), errors.Is(err, ErrCaptureInvalid):
		return codes.InvalidArgument
	case errors.Is(err, ErrSurfaceActive), errors.Is(err, ErrBadTransition), errors.Is(err, ErrSessionClosed):
		return codes.FailedPrecondition
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// ToStatus converts err into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(CodeOf(err), err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
