package protocol

import (
	"errors"
	"fmt"
)

// Code classifies why a message was rejected.
type Code string

const (
	CodeUnauthorized       Code = "Unauthorized"
	CodeInvalidAmount      Code = "InvalidAmount"
	CodeNotFound           Code = "NotFound"
	CodeAlreadySettled     Code = "AlreadySettled"
	CodeAlreadyMember      Code = "AlreadyMember"
	CodeNotMember          Code = "NotMember"
	CodeDeadlinePassed     Code = "DeadlinePassed"
	CodeGoalAlreadyFunded  Code = "GoalAlreadyFunded"
	CodeInvalidParticipant Code = "InvalidParticipant"
	CodeLimitExceeded      Code = "LimitExceeded"
	CodeInvalidOpcode      Code = "InvalidOpcode"
	CodeInactive           Code = "Inactive"
	CodeInvalidArgument    Code = "InvalidArgument"
	CodeAlreadyInitialized Code = "AlreadyInitialized"
	CodeResourceExhausted  Code = "ResourceExhausted"
	CodeInternal           Code = "Internal"
)

// Error is a rejection of a single message. The handler that returns it
// has not mutated any state.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Code)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, protocol.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrUnauthorized       = &Error{Code: CodeUnauthorized}
	ErrInvalidAmount      = &Error{Code: CodeInvalidAmount}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrAlreadySettled     = &Error{Code: CodeAlreadySettled}
	ErrAlreadyMember      = &Error{Code: CodeAlreadyMember}
	ErrNotMember          = &Error{Code: CodeNotMember}
	ErrDeadlinePassed     = &Error{Code: CodeDeadlinePassed}
	ErrGoalAlreadyFunded  = &Error{Code: CodeGoalAlreadyFunded}
	ErrInvalidParticipant = &Error{Code: CodeInvalidParticipant}
	ErrLimitExceeded      = &Error{Code: CodeLimitExceeded}
	ErrInvalidOpcode      = &Error{Code: CodeInvalidOpcode}
	ErrInactive           = &Error{Code: CodeInactive}
	ErrInvalidArgument    = &Error{Code: CodeInvalidArgument}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized}
	ErrResourceExhausted  = &Error{Code: CodeResourceExhausted}
)

// Errorf returns an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with code that wraps err.
func Wrap(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf returns the rejection code carried by err, CodeInternal for
// errors that are not rejections and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}
