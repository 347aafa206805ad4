package handlers

import (
	"errors"

	"github.com/campusgo/campusgo-backend/internal/coordinator"
)

// statusForError maps coordinator errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, coordinator.ErrBadRequest):
		return 400
	case errors.Is(err, coordinator.ErrNotAllowed):
		return 403
	case errors.Is(err, coordinator.ErrNotFound):
		return 404
	case errors.Is(err, coordinator.ErrActiveRide),
		errors.Is(err, coordinator.ErrOnWaitlist),
		errors.Is(err, coordinator.ErrRideConflict),
		errors.Is(err, coordinator.ErrInvalidState):
		return 409
	default:
		return 500
	}
}
