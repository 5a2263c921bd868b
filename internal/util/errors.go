package util

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrNotFound               = errors.New("resource not found")
	ErrUserNotFound           = fmt.Errorf("user %w", ErrNotFound)
	ErrCourseNotFound         = fmt.Errorf("course %w", ErrNotFound)
	ErrNotEnrolled            = errors.New("not enrolled in course")
	ErrAlreadyEnrolled        = errors.New("already enrolled in course")
	ErrQuotaExceeded          = errors.New("daily quiz limit reached")
	ErrValidation             = errors.New("validation error")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrPermissionDenied       = errors.New("permission denied")
)

// ValidationError 请求参数错误，带字段信息
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// QuotaExceededError 携带限额和可重试时间（次日零点）
type QuotaExceededError struct {
	Limit      int
	RetryAfter time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quiz limit reached (max %d), retry after %s", e.Limit, e.RetryAfter.Format(TimeFormat))
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
