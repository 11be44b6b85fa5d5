package database

import "errors"

var (
	ErrNotAvailable      = errors.New("resource is already booked for this window")
	ErrNotFound          = errors.New("not found")
	ErrVersionConflict   = errors.New("reservation was modified concurrently")
	ErrInvalidWindow     = errors.New("end must be after start")
	ErrReservationClosed = errors.New("reservation is cancelled or completed")
)
