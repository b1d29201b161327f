package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorCategory is the engine's failure taxonomy. Every failure is
// distinguishable by kind so a caller can choose between retrying with more
// evidence and treating the state as terminal.
type ErrorCategory string

const (
	// CategoryInvalidSession marks malformed or empty test input. Caller
	// error, reject the request.
	CategoryInvalidSession ErrorCategory = "invalid_session"
	// CategoryEmptyPortfolio marks a valid-but-no-data snapshot. Callers
	// omit the domain, they do not retry.
	CategoryEmptyPortfolio ErrorCategory = "empty_portfolio"
	// CategoryInsufficientData marks a computation where every domain was
	// absent. Fatal for this computation, surfaced as "no score yet".
	CategoryInsufficientData ErrorCategory = "insufficient_data"
	// CategoryUnreliableSignal marks a high-severity fraud flag. Non-fatal;
	// propagated as metadata alongside scores.
	CategoryUnreliableSignal ErrorCategory = "unreliable_signal"
	CategoryUnauthorized ErrorCategory = "unauthorized"
	// CategoryMalformedRequest marks a request body that failed to bind:
	// bad JSON, wrong types, missing required fields. Caller error.
	CategoryMalformedRequest ErrorCategory = "malformed_request"
	CategoryInternal         ErrorCategory = "internal"
)

// AppError wraps an errbuilder error with the category and HTTP mapping.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Category, e.ErrBuilder.Msg)
}

func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

func newAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	// ErrBuilder's JSON marshaling dereferences Cause unconditionally.
	if builder.Cause == nil {
		builder.Cause = errors.New(builder.Msg)
	}
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

// NewInvalidSession builds the caller-error variant for malformed test
// sessions.
func NewInvalidSession(detail string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("invalid test session")

	if detail != "" {
		errMap := errbuilder.ErrorMap{}
		errMap.Set("session", errors.New(detail))
		builder = builder.WithDetails(errbuilder.NewErrDetails(errMap))
	}

	return newAppError(builder, CategoryInvalidSession, http.StatusBadRequest)
}

// NewEmptyPortfolio builds the no-data variant for a snapshot with zero
// repositories.
func NewEmptyPortfolio(subjectID string) *AppError {
	errMap := errbuilder.ErrorMap{}
	errMap.Set("subject_id", errors.New(subjectID))

	builder := errbuilder.New().
		WithCode(errbuilder.CodeNotFound).
		WithMsg("portfolio snapshot has no repositories").
		WithDetails(errbuilder.NewErrDetails(errMap))

	return newAppError(builder, CategoryEmptyPortfolio, http.StatusNotFound)
}

// NewInsufficientData builds the all-domains-absent failure.
func NewInsufficientData() *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("no scoring domain present")

	return newAppError(builder, CategoryInsufficientData, http.StatusUnprocessableEntity)
}

// NewMalformedRequest builds the bind-failure variant for request bodies
// that could not be decoded or validated.
func NewMalformedRequest(cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInvalidArgument).
		WithMsg("malformed request body")

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return newAppError(builder, CategoryMalformedRequest, http.StatusBadRequest)
}

// NewUnauthorized builds the reviewer-auth failure for the endorsement
// review and admin override paths.
func NewUnauthorized(detail string) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeUnauthenticated).
		WithMsg(detail)

	return newAppError(builder, CategoryUnauthorized, http.StatusUnauthorized)
}

// NewInternalError wraps unexpected failures from the storage layer.
func NewInternalError(message string, cause error) *AppError {
	builder := errbuilder.New().
		WithCode(errbuilder.CodeInternal).
		WithMsg(message)

	if cause != nil {
		builder = builder.WithCause(cause)
	}

	return newAppError(builder, CategoryInternal, http.StatusInternalServerError)
}

// IsCategory reports whether err carries the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Category == category
	}
	return false
}

// ToAppError converts any error to an AppError. Binding and decode
// failures map to a 400-status category; anything unrecognized defaults to
// internal.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return newAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}
	if isBindError(err) {
		return NewMalformedRequest(err)
	}
	return NewInternalError("unexpected error", err)
}

// isBindError recognizes the failures ShouldBindJSON produces for bad
// caller input: invalid JSON, type mismatches, truncated bodies and
// validation failures on required fields.
func isBindError(err error) bool {
	var (
		syntaxErr     *json.SyntaxError
		typeErr       *json.UnmarshalTypeError
		validationErr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &syntaxErr),
		errors.As(err, &typeErr),
		errors.As(err, &validationErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}

// ErrorHandler is gin middleware that turns accumulated errors into
// structured responses.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			appErr := ToAppError(c.Errors.Last().Err)
			LogError(c, appErr)
			c.JSON(appErr.HTTPStatus, appErr)
		}
	}
}

// RecoveryHandler provides panic recovery with a structured response.
func RecoveryHandler() gin.HandlerFunc {
	return gin.RecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(fmt.Sprintf("panic recovered: %v", err), fmt.Errorf("%v", err))
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	})
}

// LogError logs an error with request context at a level matching its
// category: caller errors warn, internal errors error.
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	switch err.Category {
	case CategoryInvalidSession, CategoryEmptyPortfolio, CategoryInsufficientData, CategoryUnauthorized, CategoryMalformedRequest:
		logEntry.Warn(err.ErrBuilder.Msg)
	default:
		if cause := err.ErrBuilder.Unwrap(); cause != nil {
			logEntry.Error(err.ErrBuilder.Msg, "cause", cause)
		} else {
			logEntry.Error(err.ErrBuilder.Msg)
		}
	}
}
