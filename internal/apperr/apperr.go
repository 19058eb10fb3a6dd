// Package apperr defines the typed failures surfaced by the role, identity
// and HR services. Every failure carries a Kind, the operation that failed
// and a human-readable cause.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"
)

// Kind classifies a failure so the HTTP layer (and any other caller) can
// decide how to present it.
type Kind string

const (
	KindAccessDenied      Kind = "access_denied"
	KindNotFound          Kind = "not_found"
	KindRemoteUnavailable Kind = "remote_unavailable"
	KindValidationFailed  Kind = "validation_failed"
	KindTimeout           Kind = "timeout"
	KindUnauthenticated   Kind = "unauthenticated"
)

// Sentinels for errors.Is checks. An *Error matches the sentinel of its Kind.
var (
	ErrAccessDenied      = errors.New("access denied")
	ErrNotFound          = errors.New("not found")
	ErrRemoteUnavailable = errors.New("remote unavailable")
	ErrValidationFailed  = errors.New("validation failed")
	ErrTimeout           = errors.New("timeout")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

var sentinels = map[Kind]error{
	KindAccessDenied:      ErrAccessDenied,
	KindNotFound:          ErrNotFound,
	KindRemoteUnavailable: ErrRemoteUnavailable,
	KindValidationFailed:  ErrValidationFailed,
	KindTimeout:           ErrTimeout,
	KindUnauthenticated:   ErrUnauthenticated,
}

// Error is a classified failure of a single operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// New builds an *Error from a message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap builds an *Error around err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func AccessDenied(op, msg string) *Error     { return New(KindAccessDenied, op, msg) }
func NotFound(op, msg string) *Error         { return New(KindNotFound, op, msg) }
func ValidationFailed(op, msg string) *Error { return New(KindValidationFailed, op, msg) }
func Unauthenticated(op, msg string) *Error  { return New(KindUnauthenticated, op, msg) }

// KindOf returns the Kind of the first *Error in err's chain. Unclassified
// errors are reported as KindRemoteUnavailable and nil as "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	}
	return KindRemoteUnavailable
}

// Call runs fn under a bounded deadline and classifies whatever it returns.
// isNotFound lets the caller plug in the repository sentinel without this
// package importing it. Errors that are already classified pass through.
func Call(ctx context.Context, timeout time.Duration, op string, isNotFound func(error) bool, fn func(context.Context) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err := fn(ctx)
	if err == nil {
		return nil
	}
	return Classify(op, err, isNotFound)
}

// Classify maps a raw store error onto the taxonomy.
func Classify(op string, err error, isNotFound func(error) bool) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Kind: KindTimeout, Op: op, Err: err}
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindRemoteUnavailable, Op: op, Err: err}
	case isNotFound != nil && isNotFound(err):
		return &Error{Kind: KindNotFound, Op: op, Err: err}
	case isUniqueViolation(err), isForeignKeyViolation(err):
		return &Error{Kind: KindValidationFailed, Op: op, Err: err}
	}
	return &Error{Kind: KindRemoteUnavailable, Op: op, Err: err}
}

// SQLSTATE codes of the PostgreSQL integrity violations we classify.
const (
	sqlStateForeignKey = "23503"
	sqlStateUnique     = "23505"
)

// sqlState returns the SQLSTATE of a PostgreSQL error in err's chain.
func sqlState(err error) (string, bool) {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C'), true
	}
	return "", false
}

// isUniqueViolation recognises unique-constraint failures. SQLite reports
// them only through the message text.
func isUniqueViolation(err error) bool {
	if code, ok := sqlState(err); ok {
		return code == sqlStateUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation recognises rows still referenced by, or referencing
// a missing, parent row.
func isForeignKeyViolation(err error) bool {
	if code, ok := sqlState(err); ok {
		return code == sqlStateForeignKey
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
