package server

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/tailored-agentic-units/tradedesk/interrupt"
	"github.com/tailored-agentic-units/tradedesk/kernel"
	"github.com/tailored-agentic-units/tradedesk/session"
)

// ErrMissingField is returned when a request omits a required field.
var ErrMissingField = errors.New("missing required field")

// Code maps a kernel error to its Connect status code.
func Code(err error) connect.Code {
	switch {
	case errors.Is(err, ErrMissingField),
		errors.Is(err, kernel.ErrEmptySessionID),
		errors.Is(err, session.ErrEmptyID):
		return connect.CodeInvalidArgument
	case errors.Is(err, kernel.ErrSuspensionPending),
		errors.Is(err, interrupt.ErrNoPendingSuspension),
		errors.Is(err, interrupt.ErrDecisionMismatch),
		errors.Is(err, interrupt.ErrSuspensionExpired):
		return connect.CodeFailedPrecondition
	case errors.Is(err, kernel.ErrModelUnavailable):
		return connect.CodeUnavailable
	case errors.Is(err, kernel.ErrMaxIterations):
		return connect.CodeResourceExhausted
	case errors.Is(err, session.ErrConflict):
		return connect.CodeAborted
	case errors.Is(err, context.Canceled):
		return connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return connect.CodeDeadlineExceeded
	default:
		return connect.CodeInternal
	}
}

func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return err
	}
	return connect.NewError(Code(err), err)
}
