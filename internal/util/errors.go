package util

import (
	"errors"
)

type Temporary interface {
	Temporary() bool
}

func IsTemporaryError(err error) bool {
	for err := err; err != nil; err = errors.Unwrap(err) {
		if err, ok := err.(Temporary); ok && err.Temporary() {
			return true
		}
	}
	return false
}

// TemporaryError marks an error as a transient one: the operation may succeed if retried later.
type TemporaryError struct {
	error error
}

var _ Temporary = TemporaryError{}

func MakeTemporaryError(err error) TemporaryError {
	return TemporaryError{error: err}
}

func (e TemporaryError) Temporary() bool {
	return true
}

func (e TemporaryError) Error() string {
	return e.error.Error()
}

func (e TemporaryError) Unwrap() error {
	return e.error
}
