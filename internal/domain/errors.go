package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the playlist, blacklist and download services.
// Callers match them with errors.Is; detail is attached with %w wrapping.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrConflict        = errors.New("conflict")
	ErrStorage         = errors.New("storage error")
)

// NotFoundf returns an ErrNotFound carrying a formatted detail.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidArgumentf returns an ErrInvalidArgument carrying a formatted detail.
func InvalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// Conflictf returns an ErrConflict carrying a formatted detail.
func Conflictf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

// StorageError classifies err as ErrStorage unless it already carries one of
// the typed kinds. A nil err stays nil.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTyped(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// IsTyped reports whether err already belongs to the error taxonomy.
func IsTyped(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrStorage)
}

// IsRetryable is true only for storage failures. The other kinds are permanent.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage)
}
