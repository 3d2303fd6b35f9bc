package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for the worker retry policy. Workers branch on
// the kind, never on concrete provider error types.
type Kind string

const (
	KindValidation Kind = "validation_error"
	KindProvider   Kind = "provider_error"
	KindNetwork    Kind = "network_error"
	KindNotReady   Kind = "not_ready"
	KindStorage    Kind = "storage_error"
	KindTerminal   Kind = "terminal_provider_failure"
)

// ProviderContext carries the upstream response that produced a provider
// error, persisted into step logs for post-hoc debugging.
type ProviderContext struct {
	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
}

type Error struct {
	Kind     Kind
	Code     string
	Message  string
	Details  map[string]interface{}
	Provider *ProviderContext
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatusCode satisfies httpx.HTTPStatusCoder.
func (e *Error) HTTPStatusCode() int {
	if e == nil || e.Provider == nil {
		return 0
	}
	return e.Provider.StatusCode
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Wrap(kind Kind, code string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, Code: code, Message: msg, Err: err}
}

func Validation(code, message string) *Error { return New(KindValidation, code, message) }
func NotReady(code, message string) *Error   { return New(KindNotReady, code, message) }
func Terminal(code, message string) *Error   { return New(KindTerminal, code, message) }

func ProviderFailure(code, message string, pc *ProviderContext) *Error {
	return &Error{Kind: KindProvider, Code: code, Message: message, Provider: pc}
}

func Network(code string, err error) *Error { return Wrap(KindNetwork, code, err) }
func Storage(code string, err error) *Error { return Wrap(KindStorage, code, err) }

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf reports the kind of err, or the provider kind for foreign errors
// so that unclassified failures still follow the bounded retry path.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindProvider
}

func IsNotReady(err error) bool { return KindOf(err) == KindNotReady }
