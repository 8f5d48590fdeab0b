package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeCompile   ErrorType = "compile"
	ErrorTypeLint      ErrorType = "lint"
	ErrorTypePackaging ErrorType = "packaging"
	ErrorTypeIO        ErrorType = "io"
	ErrorTypeTask      ErrorType = "task"
	ErrorTypeInternal  ErrorType = "internal"
)

// ForgeError is a structured error type with context.
type ForgeError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Task        string
	FilePath    string
	Line        int
	Column      int
	Recoverable bool
}

// Error implements the error interface.
func (e *ForgeError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Task != "" {
		parts = append(parts, "task:"+e.Task)
	}

	if e.FilePath != "" {
		location := e.FilePath
		if e.Line > 0 {
			location += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				location += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, location)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ForgeError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ForgeError) Is(target error) bool {
	var t *ForgeError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ForgeError) WithContext(key string, value interface{}) *ForgeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithLocation adds file location information.
func (e *ForgeError) WithLocation(filePath string, line, column int) *ForgeError {
	e.FilePath = filePath
	e.Line = line
	e.Column = column

	return e
}

// WithTask adds the name of the task that failed.
func (e *ForgeError) WithTask(task string) *ForgeError {
	e.Task = task

	return e
}

// Error creation functions

// NewConfigError creates a configuration error (missing or invalid path spec).
func NewConfigError(code, message string) *ForgeError {
	return &ForgeError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewCompileError creates a style compilation error. Compile errors are
// recoverable: the watcher reports them and keeps running.
func NewCompileError(message string, cause error) *ForgeError {
	return &ForgeError{
		Type:        ErrorTypeCompile,
		Code:        ErrCodeCompileFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewPackagingError creates an archive write error.
func NewPackagingError(message string, cause error) *ForgeError {
	return &ForgeError{
		Type:        ErrorTypePackaging,
		Code:        ErrCodePackagingFailed,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error raised by an adapter.
func NewIOError(code, message string, cause error) *ForgeError {
	return &ForgeError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewDuplicateTaskError reports a second registration under an existing name.
func NewDuplicateTaskError(name string) *ForgeError {
	return &ForgeError{
		Type:    ErrorTypeTask,
		Code:    ErrCodeDuplicateTask,
		Message: fmt.Sprintf("task %q is already defined", name),
		Task:    name,
	}
}

// NewUnknownTaskError reports a reference to a task that was never registered.
func NewUnknownTaskError(name string) *ForgeError {
	return &ForgeError{
		Type:    ErrorTypeTask,
		Code:    ErrCodeUnknownTask,
		Message: fmt.Sprintf("task %q is not defined", name),
		Task:    name,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ForgeError {
	return &ForgeError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// Error recovery and handling utilities

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Recoverable
	}

	var le *LintError
	return errors.As(err, &le)
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return isType(err, ErrorTypeConfig)
}

// IsCompileError checks if an error is a style compilation error.
func IsCompileError(err error) bool {
	return isType(err, ErrorTypeCompile)
}

// IsPackagingError checks if an error is an archive error.
func IsPackagingError(err error) bool {
	return isType(err, ErrorTypePackaging)
}

// IsDuplicateTask checks if an error reports a duplicate task registration.
func IsDuplicateTask(err error) bool {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Code == ErrCodeDuplicateTask
	}

	return false
}

// IsLintError checks if an error (or any error joined into it) is a lint failure.
func IsLintError(err error) bool {
	var le *LintError
	return errors.As(err, &le)
}

func isType(err error, t ErrorType) bool {
	var fe *ForgeError
	if errors.As(err, &fe) {
		return fe.Type == t
	}

	return false
}

// Handler provides centralized error handling.
type Handler struct {
	logger   Logger
	notifier Notifier
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Notifier interface for error notifications.
type Notifier interface {
	NotifyError(ctx context.Context, title string, err error)
}

// NewHandler creates a new error handler.
func NewHandler(logger Logger, notifier Notifier) *Handler {
	return &Handler{
		logger:   logger,
		notifier: notifier,
	}
}

// Handle logs the error and surfaces it through the notifier. No error is
// dropped: anything that is not a ForgeError or LintError is still logged and
// notified as an unhandled failure.
func (h *Handler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	title := "Task failed"

	var fe *ForgeError
	lints := LintErrors(err)
	switch {
	case len(lints) > 0:
		title = "Lint failed"
		if h.logger != nil {
			for _, le := range lints {
				h.logger.Warn(ctx, le, "Lint violations found",
					"tool", le.Tool,
					"violations", len(le.Violations))
			}
		}
	case errors.As(err, &fe):
		title = titleFor(fe.Type)
		if h.logger != nil {
			if fe.Recoverable {
				h.logger.Warn(ctx, err, "Recoverable error occurred",
					"type", fe.Type,
					"code", fe.Code,
					"task", fe.Task,
					"file", fe.FilePath)
			} else {
				h.logger.Error(ctx, err, "Error occurred",
					"type", fe.Type,
					"code", fe.Code,
					"task", fe.Task)
			}
		}
	default:
		if h.logger != nil {
			h.logger.Error(ctx, err, "Unhandled error occurred")
		}
	}

	if h.notifier != nil {
		h.notifier.NotifyError(ctx, title, err)
	}
}

func titleFor(t ErrorType) string {
	switch t {
	case ErrorTypeConfig:
		return "Configuration error"
	case ErrorTypeCompile:
		return "Compile error"
	case ErrorTypePackaging:
		return "Packaging failed"
	case ErrorTypeIO:
		return "I/O error"
	default:
		return "Task failed"
	}
}

// Common error codes.
const (
	ErrCodeUnknownCategory = "ERR_UNKNOWN_CATEGORY"
	ErrCodeConfigInvalid   = "ERR_CONFIG_INVALID"
	ErrCodeCompileFailed   = "ERR_COMPILE_FAILED"
	ErrCodePackagingFailed = "ERR_PACKAGING_FAILED"
	ErrCodeDuplicateTask   = "ERR_DUPLICATE_TASK"
	ErrCodeUnknownTask     = "ERR_UNKNOWN_TASK"
	ErrCodeReadFailed      = "ERR_READ_FAILED"
	ErrCodeWriteFailed     = "ERR_WRITE_FAILED"
	ErrCodeToolFailed      = "ERR_TOOL_FAILED"
	ErrCodeToolNotFound    = "ERR_TOOL_NOT_FOUND"
	ErrCodeInternalError   = "ERR_INTERNAL"
)
