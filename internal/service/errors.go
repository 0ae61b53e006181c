package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/groupledger/internal/protocol"
	"github.com/mmynk/groupledger/internal/runtime"
)

// CodeHeader carries the ledger rejection code on error responses.
const CodeHeader = "Groupledger-Code"

// connectCode maps a rejection code to the closest connect code.
func connectCode(code protocol.Code) connect.Code {
	switch code {
	case protocol.CodeUnauthorized:
		return connect.CodePermissionDenied
	case protocol.CodeInvalidAmount, protocol.CodeInvalidArgument,
		protocol.CodeInvalidParticipant, protocol.CodeInvalidOpcode:
		return connect.CodeInvalidArgument
	case protocol.CodeNotFound, protocol.CodeNotMember:
		return connect.CodeNotFound
	case protocol.CodeAlreadyMember, protocol.CodeAlreadyInitialized:
		return connect.CodeAlreadyExists
	case protocol.CodeAlreadySettled, protocol.CodeGoalAlreadyFunded,
		protocol.CodeDeadlinePassed, protocol.CodeInactive:
		return connect.CodeFailedPrecondition
	case protocol.CodeLimitExceeded, protocol.CodeResourceExhausted:
		return connect.CodeResourceExhausted
	default:
		return connect.CodeInternal
	}
}

// toConnectError converts a ledger or runtime error into a connect error.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, runtime.ErrClosed):
		return connect.NewError(connect.CodeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	}

	var pe *protocol.Error
	if !errors.As(err, &pe) {
		return connect.NewError(connect.CodeInternal, err)
	}
	cerr := connect.NewError(connectCode(pe.Code), err)
	cerr.Meta().Set(CodeHeader, string(pe.Code))
	return cerr
}

// RejectionCode returns the ledger code carried by an error a client got
// back, or "" when there is none.
func RejectionCode(err error) protocol.Code {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return ""
	}
	return protocol.Code(connectErr.Meta().Get(CodeHeader))
}
