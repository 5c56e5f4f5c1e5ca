package intake

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation     = "validation"
	CodeCaptchaMissing = "captcha_missing"
	CodeCaptchaFailed  = "captcha_failed"
	CodePersistence    = "persistence"
	CodeInternal       = "internal"
)

// Error is what Submit returns; Message is safe to show the client.
type Error struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func statusForCode(code string) int {
	switch code {
	case CodeValidation, CodeCaptchaMissing, CodeCaptchaFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func newError(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode(code), Err: err}
}

// StageError tags a failure with the submission stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func StageNameFromError(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
