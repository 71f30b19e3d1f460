package journal

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a step failure as final. The failure is recorded and every
// later attempt of the step gets it back without invoking the step again.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RecordedFailure is the replay of a step failure recorded by an earlier attempt.
type RecordedFailure struct {
	RunID   string
	Step    string
	Message string
}

func (e *RecordedFailure) Error() string {
	return fmt.Sprintf("step %q of run %s failed: %s", e.Step, e.RunID, e.Message)
}

func (e *RecordedFailure) GRPCStatus() *status.Status {
	return status.New(codes.FailedPrecondition, e.Error())
}
