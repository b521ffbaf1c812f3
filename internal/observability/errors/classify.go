// Package errors derives low-cardinality error classes for metric tags and log fields.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/target/inferq/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Application errors classify by their outermost code, context errors by kind, anything
// else by the innermost concrete type in snake_case.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) && appErr.Code != "" {
		return string(appErr.Code)
	}

	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
