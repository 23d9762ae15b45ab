// Package errors is a drop-in replacement for the standard library errors package that annotates errors with
// [slog.Attr] and the source location where the error was created or wrapped.
//
// Use [SlogError] to log the error together with its annotations.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
)

type annotatedError struct {
	msg   string
	err   error
	attrs []slog.Attr
	// source is file:line of where the error was created or wrapped.
	source string
}

func (e *annotatedError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *annotatedError) Unwrap() error {
	return e.err
}

// NewSentinel creates an error without source location meant to be declared as a package level variable.
func NewSentinel(msg string) error {
	return stderrors.New(msg)
}

// New creates an error annotated with attrs and the caller's source location.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, err: nil, attrs: attrs, source: callerSource(3)} //nolint:mnd // skip Callers and New.
}

// Wrap annotates err with msg, attrs and the caller's source location. Wrapping a nil error returns nil.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	if err == nil {
		return nil
	}
	return &annotatedError{msg: msg, err: err, attrs: attrs, source: callerSource(3)} //nolint:mnd // skip Callers and Wrap.
}

// DecoratePanic converts a recovered panic value to an error pointing to the line that panicked.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	return &annotatedError{msg: fmt.Sprintf("panic: %v", excp), err: nil, attrs: nil, source: panicSource()}
}

// SlogError returns a [slog.Attr] group named "error" containing the message, the collected annotations, and the
// source location of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Any("error", nil)
	}

	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, attr := range ae.attrs {
			annotations = append(annotations, attr)
		}
		if ae.source != "" {
			source = ae.source
		}
	})

	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the error tree, outermost first.
func walk(err error, visit func(*annotatedError)) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // we want the concrete node, not the chain.
		visit(ae)
	}
	switch u := err.(type) { //nolint:errorlint // traversing the tree manually.
	case interface{ Unwrap() []error }:
		for _, e := range u.Unwrap() {
			walk(e, visit)
		}
	case interface{ Unwrap() error }:
		walk(u.Unwrap(), visit)
	}
}

func callerSource(skip int) string {
	var pcs [1]uintptr
	if runtime.Callers(skip, pcs[:]) < 1 {
		return ""
	}
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	return frame.File + ":" + strconv.Itoa(frame.Line)
}

// panicSource finds the frame that called panic by looking for the first frame after runtime.gopanic.
func panicSource() string {
	pcs := make([]uintptr, 32)   //nolint:mnd // deep enough for handler stacks.
	n := runtime.Callers(2, pcs) //nolint:mnd // skip Callers and panicSource.
	frames := runtime.CallersFrames(pcs[:n])
	sawPanic := false
	for {
		frame, more := frames.Next()
		if sawPanic {
			return frame.File + ":" + strconv.Itoa(frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			sawPanic = true
		}
		if !more {
			break
		}
	}
	return callerSource(4) //nolint:mnd // fall back to the caller of DecoratePanic.
}

// Is reports whether any error in err's tree matches target. See [stderrors.Is].
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target. See [stderrors.As].
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [stderrors.Unwrap].
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors. See [stderrors.Join].
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}
