package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/buildersacademyai/prompto-sub000/internal/database"
	"github.com/buildersacademyai/prompto-sub000/internal/reward"
	"github.com/buildersacademyai/prompto-sub000/internal/settlement"
	"github.com/gin-gonic/gin"
)

// ErrorCategory defines the type of error for proper handling
type ErrorCategory string

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryReward        ErrorCategory = "reward"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryUnauthorized  ErrorCategory = "unauthorized"
	CategoryTimeout       ErrorCategory = "timeout"
	CategoryRateLimit     ErrorCategory = "rate_limit"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryInternal      ErrorCategory = "internal"
	CategoryConfiguration ErrorCategory = "configuration"
)

// AppError wraps an errbuilder error with the context the HTTP layer needs
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory
	HTTPStatus int
	Kind       reward.ErrorKind
	Field      string
	RecordID   string
	Timestamp  time.Time
	RequestID  string
	StackTrace string
	Fields     map[string]string
}

// errorBody is the wire shape of an AppError
type errorBody struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   ErrorCategory     `json:"category"`
	Kind       reward.ErrorKind  `json:"kind,omitempty"`
	Field      string            `json:"field,omitempty"`
	RecordID   string            `json:"record_id,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	StackTrace string            `json:"stack_trace,omitempty"`
}

// MarshalJSON renders the error as {"error": {...}}
func (e *AppError) MarshalJSON() ([]byte, error) {
	body := errorBody{
		Code:      e.code(),
		Message:   e.ErrBuilder.Msg,
		Category:  e.Category,
		Kind:      e.Kind,
		Field:     e.Field,
		RecordID:  e.RecordID,
		Details:   e.Fields,
		RequestID: e.RequestID,
		Timestamp: e.Timestamp,
	}
	if gin.Mode() == gin.DebugMode {
		body.StackTrace = e.StackTrace
	}

	return json.Marshal(map[string]errorBody{"error": body})
}

func (e *AppError) withDetail(key, value string) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
	return e
}

// Error renders "[CODE] message", naming the reward kind when there is one
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.code(), e.ErrBuilder.Msg)
}

func (e *AppError) code() string {
	codeStr := "UNKNOWN_ERROR"
	switch e.ErrBuilder.ErrCode() {
	case errbuilder.CodeInvalidArgument:
		codeStr = "VALIDATION_ERROR"
	case errbuilder.CodeNotFound:
		codeStr = "NOT_FOUND"
	case errbuilder.CodeUnauthenticated:
		codeStr = "UNAUTHORIZED"
	case errbuilder.CodeDeadlineExceeded:
		codeStr = "TIMEOUT_ERROR"
	case errbuilder.CodeResourceExhausted:
		codeStr = "RATE_LIMIT_EXCEEDED"
	case errbuilder.CodeInternal:
		codeStr = "INTERNAL_ERROR"
	case errbuilder.CodeFailedPrecondition:
		codeStr = "CONFIGURATION_ERROR"
	}
	if e.Category == CategoryConflict {
		codeStr = "CONFLICT"
	}
	if e.Kind != "" {
		codeStr = string(e.Kind)
	}
	return codeStr
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// NewAppError creates an AppError from errbuilder with additional context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewValidationError creates a validation error using errbuilder
func NewValidationError(message string, details ...interface{}) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg(message)

	if len(details) > 0 {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", errors.New(fmt.Sprintf("%v", details[0])))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}

	appErr := NewAppError(builder, CategoryValidation, http.StatusBadRequest)
	if len(details) > 0 {
		appErr.withDetail("validation_details", fmt.Sprintf("%v", details[0]))
	}
	return appErr
}

// NewRewardError converts a failed reward computation into an itemized error naming the
// precondition, the offending field and the record it came from.
func NewRewardError(rerr *reward.Error, recordID string) *AppError {
	code := errbuilder.CodeInvalidArgument
	if rerr.Kind != reward.KindInvalidMetric {
		code = errbuilder.CodeFailedPrecondition
	}

	errorMap := errbuilder.ErrorMap{}
	errorMap.Set(rerr.Field, errors.New(rerr.Message))
	if recordID != "" {
		errorMap.Set("record_id", errors.New(recordID))
	}

	builder := errbuilder.New().
		WithCode(code).
		WithMsg(rerr.Field + ": " + rerr.Message).
		WithCause(rerr).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	appErr := NewAppError(builder, CategoryReward, http.StatusUnprocessableEntity)
	appErr.Kind = rerr.Kind
	appErr.Field = rerr.Field
	appErr.RecordID = recordID
	appErr.withDetail("reason", rerr.Message)
	return appErr
}

// NewNotFoundError creates a not-found error for a named resource
func NewNotFoundError(resource, id string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set(resource, errors.New(id))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg(fmt.Sprintf("%s not found", resource)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryNotFound, http.StatusNotFound).withDetail(resource, id)
}

// NewConflictError reports a write that collides with existing state, such as a reused batch ID
func NewConflictError(resource, id string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set(resource, errors.New(id))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("%s already exists", resource)).
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryConflict, http.StatusConflict).withDetail(resource, id)
}

// NewUnauthorizedError creates an authentication error
func NewUnauthorizedError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnauthenticated).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryUnauthorized, http.StatusUnauthorized)
}

// NewTimeoutError creates a timeout error using errbuilder
func NewTimeoutError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeDeadlineExceeded).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryTimeout, http.StatusGatewayTimeout)
}

// NewRateLimitError creates a rate limit error using errbuilder
func NewRateLimitError(retryAfter string) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeResourceExhausted).
		WithMsg("Rate limit exceeded").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	return NewAppError(builder, CategoryRateLimit, http.StatusTooManyRequests).withDetail("retry_after", retryAfter)
}

// NewInternalError creates an internal server error using errbuilder
func NewInternalError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg("Internal server error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	appErr := NewAppError(builder, CategoryInternal, http.StatusInternalServerError)

	if gin.Mode() == gin.DebugMode {
		appErr.StackTrace = captureStackTrace()
	}

	return appErr
}

// NewConfigurationError creates a configuration error using errbuilder
func NewConfigurationError(message string, cause error) *AppError {
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("config_details", errors.New(message))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("Configuration error").
		WithDetails(errbuilder.NewErrDetails(errorMap))

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return NewAppError(builder, CategoryConfiguration, http.StatusInternalServerError).withDetail("config_details", message)
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler is a Gin middleware that renders the last handler error as an AppError
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			appErr := ToAppError(c.Errors.Last().Err)
			appErr.RequestID = c.GetHeader("X-Request-ID")

			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}

// RecoveryHandler provides panic recovery with structured error responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.AbortWithStatusJSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError converts any error to an AppError
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var rerr *reward.Error
	if errors.As(err, &rerr) {
		return NewRewardError(rerr, "")
	}

	if errors.Is(err, database.ErrNotFound) {
		return NewNotFoundError("resource", err.Error())
	}

	var batchErr *settlement.BatchError
	if errors.As(err, &batchErr) {
		return NewValidationErrorWithMap(batchErr.Problems)
	}

	var existsErr *settlement.BatchExistsError
	if errors.As(err, &existsErr) {
		return NewConflictError("batch", existsErr.BatchID)
	}

	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	if errors.Is(err, context.Canceled) {
		return NewTimeoutError("Request cancelled", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
		return NewTimeoutError("Request deadline exceeded", err)
	}

	return NewInternalError("An unexpected error occurred", err)
}

// LogError logs an error with appropriate level and context
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)
	if err.Kind != "" {
		logEntry = logEntry.With("reward_error_kind", err.Kind, "field", err.Field, "record_id", err.RecordID)
	}

	errorMsg := err.ErrBuilder.Msg
	switch err.Category {
	case CategoryValidation, CategoryReward, CategoryNotFound, CategoryRateLimit, CategoryUnauthorized, CategoryConflict:
		if details := err.ErrBuilder.Details; len(details.Errors) > 0 {
			logEntry.Warn(errorMsg, "details", details.Errors)
		} else {
			logEntry.Warn(errorMsg)
		}
	case CategoryTimeout:
		logEntry.Info(errorMsg, "cause", err.ErrBuilder.Unwrap())
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(errorMsg, "cause", cause)
		} else {
			logEntry.Error(errorMsg)
		}
	}

	if err.StackTrace != "" && gin.Mode() == gin.DebugMode {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// WrapError wraps an error with additional context
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// SafeClose safely closes a resource and logs any errors
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}

	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource",
			"resource", resourceName,
			"error", err)
	}
}

// NewValidationErrorWithMap creates a validation error for several invalid fields at once
func NewValidationErrorWithMap(validationErrors map[string]string) *AppError {
	errMap := errbuilder.ErrorMap{}

	for field, message := range validationErrors {
		errMap.Set(field, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(message))
	}

	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("Multiple validation errors").
		WithDetails(errbuilder.NewErrDetails(errMap))

	appErr := NewAppError(builder, CategoryValidation, http.StatusBadRequest)
	for field, message := range validationErrors {
		appErr.withDetail(field, message)
	}
	return appErr
}
