package models

import (
	"errors"
	"fmt"
)

// NotFoundError indicates the identified entity does not exist. Purged
// listings surface as NotFoundError on every read path.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ValidationError indicates malformed caller input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InvalidStateError indicates the operation is not legal from the entity's
// current state.
type InvalidStateError struct {
	Entity  string
	ID      string
	Current string
	Op      string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s %s %s in state %q", e.Op, e.Entity, e.ID, e.Current)
}

// InvalidTransitionError indicates an illegal status change request.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: illegal transition %q -> %q", e.Entity, e.ID, e.From, e.To)
}

// ConcurrentModificationError indicates an optimistic-concurrency conflict:
// the stored state no longer matched the expected pre-state when the
// conditional update ran. Callers re-fetch and retry or surface a conflict.
type ConcurrentModificationError struct {
	Entity string
	ID     string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

// SlotTakenError indicates another active appointment already holds the
// requested viewing slot.
type SlotTakenError struct {
	ListingID string
	Date      string
	TimeSlot  string
}

func (e *SlotTakenError) Error() string {
	return fmt.Sprintf("slot %s %s on listing %s is already booked", e.Date, e.TimeSlot, e.ListingID)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err represents a state, transition, concurrency
// or slot conflict that maps to HTTP 409.
func IsConflict(err error) bool {
	var (
		is *InvalidStateError
		it *InvalidTransitionError
		cm *ConcurrentModificationError
		st *SlotTakenError
	)
	return errors.As(err, &is) || errors.As(err, &it) || errors.As(err, &cm) || errors.As(err, &st)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
