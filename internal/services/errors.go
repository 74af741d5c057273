package services

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures of the external content and chat services.
type ErrorKind string

const (
	KindNetworkFailure    ErrorKind = "network_failure"
	KindRemoteRejection   ErrorKind = "remote_rejection"
	KindEmptyResult       ErrorKind = "empty_result"
	KindMalformedResponse ErrorKind = "malformed_response"
)

// ServiceError is the single error type returned by fetchers and chat engines.
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the text shown to the user in the conversation.
func (e *ServiceError) UserMessage() string {
	switch e.Kind {
	case KindNetworkFailure:
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	default:
		return e.Message
	}
}

// UserMessage extracts user-facing text from any error returned by this package.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return err.Error()
}

// KindOf returns the kind of a ServiceError, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

func newNetworkError(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindNetworkFailure, Message: message, Cause: cause}
}

func newRemoteRejection(message string) *ServiceError {
	return &ServiceError{Kind: KindRemoteRejection, Message: message}
}

func newEmptyResult(message string) *ServiceError {
	return &ServiceError{Kind: KindEmptyResult, Message: message}
}

func newMalformedResponse(message string, cause error) *ServiceError {
	return &ServiceError{Kind: KindMalformedResponse, Message: message, Cause: cause}
}
