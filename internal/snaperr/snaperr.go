// Package snaperr defines the error values shared by the snapshot engine. Each error carries a Kind from a closed taxonomy, a log-friendly message, optional slog
// attributes, and an optional wrapped cause.
//
// Kinds map to how callers react: a ParseUnavailable error aborts the flush of one file, a LocatorMiss skips one record, a Timeout is reported distinctly from a
// content mismatch, and IO errors from the final write propagate to the caller.
package snaperr

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
)

// Kind classifies an Error.
type Kind string

const (
	KindParseUnavailable Kind = "parse_unavailable" // source file could not be read or parsed
	KindLocatorMiss      Kind = "locator_miss"      // no call expression at the recorded position
	KindEditConflict     Kind = "edit_conflict"     // two edits in one file overlap
	KindTimeout          Kind = "timeout"           // value under test not produced before the deadline
	KindIO               Kind = "io"                // reading or writing snapshot artifacts failed
	KindConfig           Kind = "config"            // configuration could not be loaded or is invalid
)

// Sentinels usable with errors.Is; any Error of the same Kind matches them.
var (
	ErrParseUnavailable = &Error{Kind: KindParseUnavailable}
	ErrLocatorMiss      = &Error{Kind: KindLocatorMiss}
	ErrEditConflict     = &Error{Kind: KindEditConflict}
	ErrTimeout          = &Error{Kind: KindTimeout}
	ErrIO               = &Error{Kind: KindIO}
	ErrConfig           = &Error{Kind: KindConfig}
)

// Error is a classified error with structured attributes.
type Error struct {
	Kind    Kind
	Message string
	attrs   []any // slog-style key/values or slog.Attrs
	wrapped error
}

// New returns an Error of kind with msg. args are slog-style key/values or slog.Attrs.
func New(kind Kind, msg string, args ...any) error {
	return &Error{Kind: kind, Message: msg, attrs: args}
}

// Wrap returns an Error of kind with msg that wraps cause.
func Wrap(kind Kind, msg string, cause error, args ...any) error {
	return &Error{Kind: kind, Message: msg, attrs: args, wrapped: cause}
}

// Error renders the message, then the attributes in slog text form, then the wrapped error. Ex: `no call found[file=a_test.go line=12] via EOF`.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Kind))
	}
	if len(e.attrs) > 0 {
		b.WriteString("[")
		writeAttrs(&b, e.attrs)
		b.WriteString("]")
	}
	if e.wrapped != nil {
		b.WriteString(" via ")
		b.WriteString(e.wrapped.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is matches kind sentinels (an Error with no message) of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	return t.Message == "" && t.wrapped == nil && t.Kind == e.Kind
}

// KindOf returns the Kind of the outermost Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Log logs err at error level on logger (if both are non-nil) and returns err, so callers can log and return in one line:
//
//	return snaperr.Log(logger, snaperr.New(snaperr.KindLocatorMiss, "no call found", "line", 12))
//
// Attributes of an Error are logged before args, along with its kind and wrapped cause.
func Log(logger *slog.Logger, err error, args ...any) error {
	if logger == nil || err == nil {
		return err
	}

	e, ok := err.(*Error)
	if !ok {
		logger.Error(err.Error(), args...)
		return err
	}

	all := make([]any, 0, len(e.attrs)+len(args)+2)
	all = append(all, slog.String("kind", string(e.Kind)))
	all = append(all, e.attrs...)
	if e.wrapped != nil {
		all = append(all, slog.String("via", e.wrapped.Error()))
	}
	all = append(all, args...)

	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	logger.Error(msg, all...)
	return err
}

// writeAttrs writes attrs to b in slog text-handler format (ex: `num=3 str="hi"`).
func writeAttrs(b *strings.Builder, attrs []any) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey {
				return slog.Attr{}
			}
			return a
		},
	}
	logger := slog.New(slog.NewTextHandler(&trimNewline{w: b}, opts))
	logger.Log(context.Background(), slog.LevelDebug, "", attrs...)
}

// trimNewline drops the single trailing newline that slog.TextHandler writes per record.
type trimNewline struct {
	w io.Writer
}

func (t *trimNewline) Write(p []byte) (int, error) {
	if len(p) > 0 && p[len(p)-1] == '\n' {
		n, err := t.w.Write(p[:len(p)-1])
		if err != nil {
			return n, err
		}
		return len(p), nil
	}
	return t.w.Write(p)
}
