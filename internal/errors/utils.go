package errors

import (
	"errors"
)

// Wrap wraps an error with additional context, creating a ForgeError if the input is not already one
func Wrap(err error, errType ErrorType, code, message string) *ForgeError {
	if err == nil {
		return nil
	}

	// If it's already a ForgeError, preserve its location but update the message
	var fe *ForgeError
	if errors.As(err, &fe) {
		return &ForgeError{
			Type:        errType,
			Code:        code,
			Message:     message,
			Cause:       fe,
			Context:     fe.Context,
			Task:        fe.Task,
			FilePath:    fe.FilePath,
			Line:        fe.Line,
			Column:      fe.Column,
			Recoverable: fe.Recoverable,
		}
	}

	return &ForgeError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeCompile,
	}
}

// WrapIO wraps a read or write failure on path.
func WrapIO(err error, code, path string) *ForgeError {
	fe := Wrap(err, ErrorTypeIO, code, "i/o failure")
	if fe != nil {
		fe.FilePath = path
	}
	return fe
}

// WrapTask attaches the failing task's name without changing the error's type.
func WrapTask(err error, task string) error {
	if err == nil {
		return nil
	}

	var fe *ForgeError
	if errors.As(err, &fe) && fe.Task == "" {
		fe.Task = task
	}
	return err
}
