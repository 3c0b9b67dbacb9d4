package console

import "errors"

var (
	// ErrInvalidTransition is returned when an operation is not allowed in the current mode.
	ErrInvalidTransition = errors.New("operation not allowed in current mode")
	// ErrBusy is returned when the same submission is already in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrNotAuthenticated is returned by operations that need a session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrProductNotFound is returned when an id is not in the directory snapshot.
	ErrProductNotFound = errors.New("product not found")
	// ErrUnknownField is returned by SetField for names the draft does not have.
	ErrUnknownField = errors.New("unknown field")
	// ErrSlotOutOfRange is returned by SetImageAt for an index outside the image list.
	ErrSlotOutOfRange = errors.New("image slot out of range")
)
