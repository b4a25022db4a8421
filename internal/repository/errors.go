// Package repository implements SQL persistence for the hotel booking
// service. This file defines error values that are reused across
// multiple repositories. These sentinel values allow higher layers
// such as handlers to distinguish between different failure
// scenarios. For example, ErrForbidden indicates that the current
// user is not authorized to read a booking owned by someone else.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrHotelNotFound is returned when no hotel exists for a given ID.
var ErrHotelNotFound = errors.New("hotel not found")
