package domain

import "errors"

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrUnauthorized      = errors.New("account password does not match")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrSameAccount       = errors.New("cannot transfer to the same account")

	// ErrConflict is returned when the database aborts a transaction because of
	// a concurrent update or a detected deadlock.
	ErrConflict = errors.New("concurrent update conflict")
)
