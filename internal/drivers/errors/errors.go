package errors

import "errors"

var (
	ErrNotFound       = errors.New("driver not found")
	ErrInvalidID      = errors.New("invalid driver id")
	ErrDuplicateEmail = errors.New("driver email already registered")
)
