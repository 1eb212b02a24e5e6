package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate      = errors.New("duplicate idempotency key")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("request not found")
)

const dbErrorMsg = "Database error: "

type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("Request not found with id %d", e.ID) }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

type InvalidRequestError struct {
	Msg string
	Err error
}

func (e *InvalidRequestError) Error() string { return e.Msg }

func (e *InvalidRequestError) Unwrap() error { return e.Err }

func (e *InvalidRequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalidRequest(msg string) error { return &InvalidRequestError{Msg: msg} }

// dataAccess folds a storage failure into the single client-facing request error.
func dataAccess(err error) error {
	return &InvalidRequestError{Msg: dbErrorMsg + err.Error(), Err: err}
}
