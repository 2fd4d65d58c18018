// Package errors provides structured error types for the app's data layer.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents the category of error that occurred
type ErrorCode string

const (
	ErrCodeNetwork    ErrorCode = "NETWORK_ERROR"
	ErrCodeLocation   ErrorCode = "LOCATION_ERROR"
	ErrCodeStorage    ErrorCode = "STORAGE_ERROR"
	ErrCodeAuth       ErrorCode = "AUTH_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnknown    ErrorCode = "UNKNOWN_ERROR"
)

// Operation represents the operation during which an error occurred
type Operation string

const (
	OpSet     Operation = "set"
	OpGet     Operation = "get"
	OpRemove  Operation = "remove"
	OpSave    Operation = "save"
	OpLoad    Operation = "load"
	OpLogin   Operation = "login"
	OpLogout  Operation = "logout"
	OpSession Operation = "session"
	OpAPICall Operation = "api_call"
	OpSync    Operation = "sync"
	OpExport  Operation = "export"
	OpImport  Operation = "import"
	OpClose   Operation = "close"
)

// AppError is the tagged error type produced at every failure site.
// Callers classify by Code via errors.As rather than inspecting messages.
type AppError struct {
	// Operation during which the error occurred
	Op Operation

	// Component that generated the error (e.g., "kvstore", "auth")
	Component string

	// Underlying error
	Err error

	// Whether the operation can be retried
	Retryable bool

	// Error code for the error category
	Code ErrorCode

	// Metadata for additional context
	Metadata map[string]interface{}
}

func (e *AppError) Error() string {
	var msg string
	if e.Component != "" {
		msg = fmt.Sprintf("%s operation failed in %s component", e.Op, e.Component)
	} else {
		msg = fmt.Sprintf("%s operation failed", e.Op)
	}

	if e.Code != "" {
		msg += fmt.Sprintf(" [%s]", e.Code)
	}

	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage-related AppError
func NewStorageError(op Operation, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeStorage,
		Op:        op,
		Component: "storage",
		Err:       cause,
		Retryable: true,
	}
}

// NewNetworkError creates a new network-related AppError
func NewNetworkError(op Operation, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeNetwork,
		Op:        op,
		Component: "network",
		Err:       cause,
		Retryable: true,
	}
}

// NewLocationError creates a new location-related AppError
func NewLocationError(op Operation, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeLocation,
		Op:        op,
		Component: "location",
		Err:       cause,
	}
}

// NewAuthError creates a new auth-related AppError
func NewAuthError(op Operation, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeAuth,
		Op:        op,
		Component: "auth",
		Err:       cause,
	}
}

// NewValidationError creates a new validation-related AppError
func NewValidationError(op Operation, cause error) *AppError {
	return &AppError{
		Code: ErrCodeValidation,
		Op:   op,
		Err:  cause,
	}
}

// New creates a new AppError with no category
func New(op Operation, err error) *AppError {
	return &AppError{
		Code: ErrCodeUnknown,
		Op:   op,
		Err:  err,
	}
}

// NewWithComponent creates a new AppError with component information
func NewWithComponent(op Operation, component string, err error) *AppError {
	return &AppError{
		Code:      ErrCodeUnknown,
		Op:        op,
		Component: component,
		Err:       err,
	}
}

// NewRetryable creates a new retryable AppError
func NewRetryable(op Operation, err error) *AppError {
	return &AppError{
		Code:      ErrCodeUnknown,
		Op:        op,
		Err:       err,
		Retryable: true,
	}
}

// As is re-exported from the standard library so callers of this package
// don't need a second errors import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Is is re-exported from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// IsRetryable checks if an error is a retryable AppError
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// CodeOf returns the error code of an AppError, or ErrCodeUnknown for
// any other error.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeUnknown
}

// UserMessage returns the user-facing message for an error's category.
func UserMessage(err error) string {
	switch CodeOf(err) {
	case ErrCodeNetwork:
		return "ネットワーク接続に問題があります。インターネット接続を確認してください。"
	case ErrCodeLocation:
		return "位置情報の取得に失敗しました。設定で位置情報の使用を許可してください。"
	case ErrCodeStorage:
		return "データの保存に失敗しました。ストレージの空き容量を確認してください。"
	case ErrCodeAuth:
		return "認証に失敗しました。もう一度ログインしてください。"
	case ErrCodeValidation:
		return "入力内容に問題があります。内容を確認してください。"
	default:
		return "予期しないエラーが発生しました。時間を置いて再度お試しください。"
	}
}
