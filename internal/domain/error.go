package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeMalformedWindow       ErrorCode = "MALFORMED_WINDOW"
	CodeDurationExceeded      ErrorCode = "DURATION_EXCEEDED"
	CodeSizeExceeded          ErrorCode = "SIZE_EXCEEDED"
	CodeTraceCountExceeded    ErrorCode = "TRACE_COUNT_EXCEEDED"
	CodeSampleCountExceeded   ErrorCode = "SAMPLE_COUNT_EXCEEDED"
	CodeOverrideReasonMissing ErrorCode = "OVERRIDE_JUSTIFICATION_MISSING"
	CodeUpstreamProvider      ErrorCode = "UPSTREAM_PROVIDER_ERROR"
	CodeBadRequest            ErrorCode = "BAD_REQUEST"
	CodeInternal              ErrorCode = "INTERNAL"
)

// Error is the structured failure value used on every boundary that the
// tool facade converts into {ok:false, error, message} responses.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:    existing.Code,
			Op:      op,
			Message: existing.Message,
			Cause:   existing.Cause,
		}
	}
	return E(code, op, "", err)
}

// CodeFrom extracts the ErrorCode from an error chain. Unknown errors map
// to CodeInternal so the facade always has a machine-readable kind.
func CodeFrom(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	return CodeInternal
}

// MessageFrom extracts the human-readable message from an error chain.
func MessageFrom(err error) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if errors.As(err, &domainErr) {
		if domainErr.Message != "" {
			return domainErr.Message
		}
	}
	return err.Error()
}
