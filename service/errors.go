package service

import (
	"errors"
	"fmt"
)

// Code 机器可读的错误码
type Code string

const (
	ErrCodeInvalidAxis        Code = "INVALID_AXIS"
	ErrCodeInvalidInput       Code = "INVALID_INPUT"
	ErrCodeMissingAsset       Code = "MISSING_ASSET"
	ErrCodeMattingFailure     Code = "MATTING_FAILURE"
	ErrCodeDegenerateGeometry Code = "DEGENERATE_GEOMETRY"
	ErrCodeNotFound           Code = "NOT_FOUND"
	ErrCodeQueueFull          Code = "QUEUE_FULL"
	ErrCodeInternal           Code = "INTERNAL_ERROR"
)

// Error 带错误码的错误
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsCode 沿错误链查找指定错误码
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf 取出错误码，非 *Error 返回空串
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
