// Package errors provides the standardized error type shared by the reminder
// engine, its stores and its channel senders.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeOrderNotFound        ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeSettingsNotFound     ErrorCode = "SETTINGS_NOT_FOUND"
	ErrCodeInvalidSettings      ErrorCode = "INVALID_SETTINGS"

	ErrCodeChannelDisabled  ErrorCode = "CHANNEL_DISABLED"
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeRecipientMissing ErrorCode = "RECIPIENT_MISSING"

	ErrCodeStorageReadFailed  ErrorCode = "STORAGE_READ_FAILED"
	ErrCodeStorageWriteFailed ErrorCode = "STORAGE_WRITE_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInvalidRequest         ErrorCode = "INVALID_REQUEST"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches on the error code so sentinels below work with errors.Is
// regardless of details or timestamp.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ==========================
// 2. Sentinels
// ==========================

var (
	ErrOrderNotFound        = &StandardError{Code: ErrCodeOrderNotFound, Message: "Order not found"}
	ErrNotificationNotFound = &StandardError{Code: ErrCodeNotificationNotFound, Message: "Failed notification not found"}
	ErrSettingsNotFound     = &StandardError{Code: ErrCodeSettingsNotFound, Message: "Notification settings not configured"}
	ErrInvalidSettings      = &StandardError{Code: ErrCodeInvalidSettings, Message: "Notification settings are invalid"}
	ErrChannelDisabled      = &StandardError{Code: ErrCodeChannelDisabled, Message: "Channel is disabled"}
)

// ==========================
// 3. Error Constructors
// ==========================

// NewOrderNotFoundError creates a non-retryable not-found error.
func NewOrderNotFoundError(orderID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderNotFound,
		Message:   "Order not found",
		Details:   fmt.Sprintf("orderId: %s", orderID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationNotFoundError is returned by retry when no failed record
// carries the id.
func NewNotificationNotFoundError(notificationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationNotFound,
		Message:   "Failed notification not found",
		Details:   fmt.Sprintf("notificationId: %s", notificationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewSettingsNotFoundError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSettingsNotFound,
		Message:   "Notification settings not configured",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidSettingsError creates a non-retryable validation error.
func NewInvalidSettingsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidSettings,
		Message:   "Notification settings are invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewChannelDisabledError(channel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelDisabled,
		Message:   "Channel is disabled",
		Details:   fmt.Sprintf("channel: %s", channel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewTemplateNotFoundError(channel, notificationType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "Template not found in settings",
		Details:   fmt.Sprintf("channel: %s, type: %s", channel, notificationType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewRecipientMissingError(channel, orderID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientMissing,
		Message:   "Order has no recipient for channel",
		Details:   fmt.Sprintf("channel: %s, orderId: %s", channel, orderID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageReadFailedError creates a retryable storage error.
func NewStorageReadFailedError(store string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageReadFailed,
		Message:   fmt.Sprintf("Failed to read from %s", store),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewStorageWriteFailedError creates a retryable storage error.
func NewStorageWriteFailedError(store string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageWriteFailed,
		Message:   fmt.Sprintf("Failed to write to %s", store),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewInvalidRequestError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidRequest,
		Message:   "Invalid request",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Helpers
// ==========================

// Normalize converts any error into a StandardError, keeping the original as
// the cause.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// IsRetryable reports whether the error is worth retrying.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// Code extracts the error code, or "" for non-standard errors.
func Code(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
