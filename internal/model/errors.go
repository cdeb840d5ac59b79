// Package model holds the reservation domain types and the error kinds shared
// by the stores, the booking service and the HTTP layer.  Callers compare
// errors with errors.Is; InsufficientInventoryError also supports errors.As
// so the current availability can be reported.
package model

import (
	"errors"
	"fmt"
)

// ErrTrainNotFound is returned when no train has the requested number.
var ErrTrainNotFound = errors.New("train not found")

// ErrReservationNotFound is returned when no live reservation has the
// requested pnr.
var ErrReservationNotFound = errors.New("reservation not found")

// ErrDuplicateID signals that an identifier is already in use.  For pnrs it
// means the allocator and the ledger disagree, which should never happen.
var ErrDuplicateID = errors.New("duplicate id")

// ErrForbidden is returned when the caller does not own the reservation.
var ErrForbidden = errors.New("forbidden")

// ErrUsernameTaken is returned on registration with an existing username.
var ErrUsernameTaken = errors.New("username already exists")

// ErrInvalidCredentials is returned when login fails.
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrInsufficientInventory is the target for errors.Is checks against
// InsufficientInventoryError.
var ErrInsufficientInventory = errors.New("insufficient inventory")

// ErrInvalidInput is the target for errors.Is checks against
// InvalidInputError.
var ErrInvalidInput = errors.New("invalid input")

// InsufficientInventoryError reports a booking that asked for more seats
// than the train had left.  Available is the count observed while the
// train's lock was held.
type InsufficientInventoryError struct {
	TrainNumber int
	Requested   int
	Available   int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("not enough seats on train %d: requested %d, available %d",
		e.TrainNumber, e.Requested, e.Available)
}

func (e *InsufficientInventoryError) Is(target error) bool {
	return target == ErrInsufficientInventory
}

// InvalidInputError describes a rejected argument.
type InvalidInputError string

func (e InvalidInputError) Error() string {
	return string(e)
}

func (e InvalidInputError) Is(target error) bool {
	if target == ErrInvalidInput {
		return true
	}
	_, ok := target.(InvalidInputError)
	return ok
}
