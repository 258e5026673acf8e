package reward

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a reward could not be computed.
type ErrorKind string

const (
	KindInvalidConfig   ErrorKind = "InvalidConfig"
	KindUnknownPlatform ErrorKind = "UnknownPlatform"
	KindInvalidMetric   ErrorKind = "InvalidMetric"
)

var (
	ErrInvalidConfig   = errors.New("invalid campaign reward config")
	ErrUnknownPlatform = errors.New("unknown platform")
	ErrInvalidMetric   = errors.New("invalid engagement metric")
)

// Error is returned by ComputeReward when validation fails. None of these are retryable:
// the same input always fails the same way.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Field   string    `json:"field"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
}

// Is lets errors.Is match an *Error against the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidConfig:
		return e.Kind == KindInvalidConfig
	case ErrUnknownPlatform:
		return e.Kind == KindUnknownPlatform
	case ErrInvalidMetric:
		return e.Kind == KindInvalidMetric
	}
	return false
}

func invalidConfig(field, format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidConfig, Field: field, Message: fmt.Sprintf(format, args...)}
}

func unknownPlatform(p Platform) *Error {
	return &Error{
		Kind:    KindUnknownPlatform,
		Field:   "platform",
		Message: fmt.Sprintf("platform %q has no configured weight", string(p)),
	}
}

func invalidMetric(field string, value int64) *Error {
	return &Error{Kind: KindInvalidMetric, Field: field, Message: fmt.Sprintf("must be >= 0, got %d", value)}
}

// KindOf returns the ErrorKind of err, or "" when err is not a reward error.
func KindOf(err error) ErrorKind {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Kind
	}
	return ""
}
