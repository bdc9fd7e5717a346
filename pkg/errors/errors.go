// Package errors 提供统一的错误处理框架
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	// 通用错误码
	CodeUnknown      Code = "UNKNOWN"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeNotFound     Code = "NOT_FOUND"

	// 结构性错误（对调用致命，绝不静默吞掉）
	CodeMalformedOccurrenceID Code = "MALFORMED_OCCURRENCE_ID"
	CodeWeekStartNotMonday    Code = "WEEK_START_NOT_MONDAY"
	CodeInvalidDateRange      Code = "INVALID_DATE_RANGE"

	// 软性状态（引擎返回空结果，不报错；错误码仅供调用方表达）
	CodeNoEligibleDoctor Code = "NO_ELIGIBLE_DOCTOR"

	// 失效引用（按unset处理并告警，永不抛出）
	CodeStaleReference Code = "STALE_REFERENCE"

	// 数据相关
	CodeDatabaseError  Code = "DATABASE_ERROR"
	CodeValidationFail Code = "VALIDATION_FAILED"
)

// AppError 应用错误
type AppError struct {
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Cause      error                  `json:"-"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Error 实现 error 接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加详细信息
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// WithCause 添加原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithField 添加字段
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// New 创建新错误
func New(code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

// Wrap 包装错误
func Wrap(err error, code Code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

// codeToHTTPStatus 错误码转HTTP状态码
func codeToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput, CodeValidationFail,
		CodeMalformedOccurrenceID, CodeWeekStartNotMonday, CodeInvalidDateRange:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNoEligibleDoctor:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Is 检查错误是否为特定错误码
func Is(err error, code Code) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode 获取错误码
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetHTTPStatus 获取HTTP状态码
func GetHTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// 预定义错误
var (
	ErrNotFound     = New(CodeNotFound, "资源不存在")
	ErrInvalidInput = New(CodeInvalidInput, "输入参数无效")
	ErrInternal     = New(CodeInternal, "内部错误")
)

// MalformedOccurrenceID 创建场次标识格式错误
func MalformedOccurrenceID(id string) *AppError {
	return New(CodeMalformedOccurrenceID,
		fmt.Sprintf("场次标识 '%s' 无法拆分为 {规则ID, 日期}", id))
}

// WeekStartNotMonday 创建周起始日错误
func WeekStartNotMonday(date string) *AppError {
	return New(CodeWeekStartNotMonday,
		fmt.Sprintf("周起始日 '%s' 不是周一", date))
}

// InvalidDateRange 创建日期范围错误
func InvalidDateRange(start, end string) *AppError {
	return New(CodeInvalidDateRange,
		fmt.Sprintf("日期范围无效: %s - %s", start, end))
}

// InvalidInput 创建输入无效错误
func InvalidInput(field, reason string) *AppError {
	return New(CodeInvalidInput, fmt.Sprintf("字段 '%s' 无效: %s", field, reason))
}

// NotFound 创建资源不存在错误
func NotFound(resource, id string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s '%s' 不存在", resource, id))
}

// StaleReference 创建失效引用错误
// 仅用于日志告警，引擎内部按unset处理，从不向外抛出
func StaleReference(kind, id string) *AppError {
	return New(CodeStaleReference, fmt.Sprintf("%s '%s' 已不在当前快照中", kind, id))
}
