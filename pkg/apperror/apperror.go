// Package apperror 定义核心流程对外暴露的失败类型
package apperror

import (
	"errors"
	"fmt"
)

// Kind 失败类别
type Kind string

const (
	KindValidation      Kind = "VALIDATION_FAILURE"
	KindAlreadyExists   Kind = "ALREADY_EXISTS"
	KindCompanyNotFound Kind = "COMPANY_NOT_FOUND"
	KindProfileNotFound Kind = "PROFILE_NOT_FOUND"
	KindProfileParse    Kind = "PROFILE_PARSE_ERROR"
	KindFetchFailure    Kind = "FETCH_FAILURE"
	KindParseFailure    Kind = "PARSE_FAILURE"
	KindDuplicateTicker Kind = "DUPLICATE_TICKER"
)

// 哨兵错误，配合 errors.Is 按类别匹配
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrAlreadyExists   = &Error{Kind: KindAlreadyExists}
	ErrCompanyNotFound = &Error{Kind: KindCompanyNotFound}
	ErrProfileNotFound = &Error{Kind: KindProfileNotFound}
	ErrProfileParse    = &Error{Kind: KindProfileParse}
	ErrFetchFailure    = &Error{Kind: KindFetchFailure}
	ErrParseFailure    = &Error{Kind: KindParseFailure}
	ErrDuplicateTicker = &Error{Kind: KindDuplicateTicker}
)

// Error 带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 只比较类别
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New 创建业务错误
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf 创建带格式化消息的业务错误
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap 创建携带底层原因的业务错误
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf 返回错误链中第一个业务错误的类别，没有则返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
