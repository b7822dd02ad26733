// Package apperrors 定义案件引擎统一的业务错误类型
// 每个错误携带稳定的机器可读错误码和面向用户的消息，
// 接口层据此映射 HTTP 状态码，调用方据此决定重试策略。
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 业务错误码
type Code string

const (
	// CodeValidation 请求字段缺失或非法
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeInvalidTransition 当前状态不允许该操作
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	// CodePreconditionNotMet 应用级前置条件未满足（如必要阶段未完成）
	CodePreconditionNotMet Code = "PRECONDITION_NOT_MET"
	// CodeNotFound 引用的实体不存在
	CodeNotFound Code = "NOT_FOUND"
	// CodeConflict 乐观锁冲突，调用方应重新读取后重试
	CodeConflict Code = "CONFLICT"
	// CodeInternal 未分类的内部错误
	CodeInternal Code = "INTERNAL_ERROR"
)

// Error 业务错误
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New 创建业务错误
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf 创建带格式化消息的业务错误
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation 字段校验错误
func Validation(format string, args ...any) *Error {
	return Newf(CodeValidation, format, args...)
}

// InvalidTransition 状态机非法迁移错误
func InvalidTransition(entity, from, action string) *Error {
	return Newf(CodeInvalidTransition, "%s in status %q does not permit %s", entity, from, action)
}

// PreconditionNotMet 应用级门控错误，消息需点名未满足的条件
func PreconditionNotMet(format string, args ...any) *Error {
	return Newf(CodePreconditionNotMet, format, args...)
}

// NotFound 实体不存在错误
func NotFound(entity, id string) *Error {
	return Newf(CodeNotFound, "%s %s not found", entity, id)
}

// Conflict 并发修改冲突错误
func Conflict(entity, id string) *Error {
	return Newf(CodeConflict, "%s %s was modified concurrently, refetch and retry", entity, id)
}

// CodeOf 提取错误码，非业务错误返回 CodeInternal
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is 判断错误是否携带指定错误码
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus 错误码到 HTTP 状态码的映射
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeInvalidTransition:
		return http.StatusConflict
	case CodePreconditionNotMet:
		return http.StatusPreconditionFailed
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
