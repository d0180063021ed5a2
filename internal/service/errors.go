package service

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类，API 层据此映射 HTTP 状态码
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindUpstream   ErrorKind = "upstream"
	KindFetch      ErrorKind = "fetch"
	KindStore      ErrorKind = "store"
	KindLedger     ErrorKind = "ledger"
)

// Error is a pipeline failure tagged with the stage that produced it.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrUpstream   = &Error{Kind: KindUpstream}
	ErrFetch      = &Error{Kind: KindFetch}
	ErrStore      = &Error{Kind: KindStore}
	ErrLedger     = &Error{Kind: KindLedger}
)

// ErrUnknownKind 未注册的生成类型
var ErrUnknownKind = errors.New("unknown generation kind")

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("%s error", e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func validationError(message string) *Error {
	return newError(KindValidation, message, nil)
}

// KindOf reports the kind of a pipeline error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
