package appointments

import "errors"

var (
	ErrNotFound           = errors.New("appointment not found")
	ErrInvalidState       = errors.New("appointment is not in a valid state for this operation")
	ErrAlreadyRescheduled = errors.New("appointment has already been rescheduled once")
	ErrTooLate            = errors.New("appointments may only be rescheduled at least 3 hours before start")
	ErrConsultantMismatch = errors.New("consultant does not own the requested slot")
	ErrBookingFailed      = errors.New("could not book the new slot")
)
