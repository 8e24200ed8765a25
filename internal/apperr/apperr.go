package apperr

import (
	"errors"
	"fmt"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind classifies repository failures for callers that branch on them.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindConstraintViolation Kind = "CONSTRAINT_VIOLATION"
	KindStorageWrite        Kind = "STORAGE_WRITE_FAILED"
	KindStorageRead         Kind = "STORAGE_READ_FAILED"
	KindUploadFailed        Kind = "UPLOAD_FAILED"
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches two errors by kind so callers can use sentinel-style checks
// against e.g. apperr.NotFound("").
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ConstraintViolation(msg string, cause error) error {
	return &Error{Kind: KindConstraintViolation, Message: msg, cause: cause}
}

func StorageWrite(key string, cause error) error {
	return &Error{Kind: KindStorageWrite, Message: "failed to write blob " + key, cause: cause}
}

func StorageRead(key string, cause error) error {
	return &Error{Kind: KindStorageRead, Message: "failed to read blob " + key, cause: cause}
}

func UploadFailed(msg string, cause error) error {
	return &Error{Kind: KindUploadFailed, Message: msg, cause: cause}
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}

// FromSQLite maps driver constraint failures onto ConstraintViolation and
// wraps everything else unchanged.
func FromSQLite(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isConstraintError(err) {
		return ConstraintViolation(msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT,
			sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			sqlite3.SQLITE_CONSTRAINT_NOTNULL:
			return true
		}
	}
	return strings.Contains(err.Error(), "constraint failed")
}
