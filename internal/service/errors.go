package service

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrEmptyCart       = status.Error(codes.Aborted, "cart is empty")
	ErrInvalidQuantity = status.Error(codes.InvalidArgument, "quantity must be at least 1")
)

// ProviderError is a failed call to an external provider. The step that made
// the call stays incomplete and is attempted again when the run is resumed.
type ProviderError struct {
	Step string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) GRPCStatus() *status.Status {
	return status.New(codes.Unavailable, e.Error())
}

func invalidArgument(format string, args ...any) error {
	return status.Errorf(codes.InvalidArgument, format, args...)
}
