package domain

import "errors"

// ErrInvalid is matched by every ValidationError via errors.Is.
var ErrInvalid = errors.New("domain validation failed")

type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
