package jenkins

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusReason classifies a failed build-server response.
type StatusReason string

const (
	StatusReasonUnknown StatusReason = ""

	// Status code 401
	StatusReasonUnauthorized StatusReason = "Unauthorized"

	// Status code 403
	StatusReasonForbidden StatusReason = "Forbidden"

	// StatusReasonNotFound usually means the job has no successful build yet,
	// or the artifact path no longer exists.
	// Status code 404
	StatusReasonNotFound StatusReason = "NotFound"

	// Status code 500
	StatusReasonInternalError StatusReason = "InternalError"

	// Status codes 502, 503, 504
	StatusReasonServiceUnavailable StatusReason = "ServiceUnavailable"
)

type httpStatus interface {
	Status() StatusReason
}

type Error struct {
	Code      int
	ErrStatus StatusReason
	Message   string
	Detail    string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("[%d %s] %s", e.Code, e.ErrStatus, e.Message)
	}
	return fmt.Sprintf("[%d %s] %s: %s", e.Code, e.ErrStatus, e.Message, e.Detail)
}

func (e *Error) Status() StatusReason {
	return e.ErrStatus
}

var _ error = &Error{}
var _ httpStatus = &Error{}

func IsNotFound(err error) bool {
	return ReasonForError(err) == StatusReasonNotFound
}

func IsUnauthorized(err error) bool {
	reason := ReasonForError(err)
	return reason == StatusReasonUnauthorized || reason == StatusReasonForbidden
}

func ReasonForError(err error) StatusReason {
	if status := httpStatus(nil); errors.As(err, &status) {
		return status.Status()
	}
	return StatusReasonUnknown
}

const maxDetailLen = 512

func newServerError(code int, detail string) *Error {
	reason := StatusReasonUnknown
	message := fmt.Sprintf("the server responded with the status code %d but did not return more information", code)
	switch code {
	case http.StatusUnauthorized:
		reason = StatusReasonUnauthorized
		message = "the server has asked for the client to provide credentials"
	case http.StatusForbidden:
		reason = StatusReasonForbidden
		message = "the server refused access to the requested resource"
	case http.StatusNotFound:
		reason = StatusReasonNotFound
		message = "the server could not find the requested resource"
	case http.StatusInternalServerError:
		reason = StatusReasonInternalError
		message = "an error on the server has prevented the request from succeeding"
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		reason = StatusReasonServiceUnavailable
		message = "the server is currently unable to handle the request"
	}

	if len(detail) > maxDetailLen {
		detail = detail[:maxDetailLen] + "..."
	}

	return &Error{Code: code, ErrStatus: reason, Message: message, Detail: detail}
}
