package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors shared by repositories and services. Handlers map these to
// HTTP status codes with errors.Is / errors.As instead of matching strings.
var (
	ErrNotFound          = errors.New("record not found")
	ErrShowtimeNotFound  = fmt.Errorf("showtime %w", ErrNotFound)
	ErrRoomNotFound      = fmt.Errorf("room %w", ErrNotFound)
	ErrBookingNotFound   = fmt.Errorf("booking %w", ErrNotFound)
	ErrBookingNotPending = errors.New("booking is not pending")
	ErrInvalidState      = errors.New("transition not allowed from current state")
	ErrForbidden         = errors.New("forbidden")
	ErrValidation        = errors.New("validation failed")
	ErrInvalidSeats      = fmt.Errorf("invalid seat selection: %w", ErrValidation)
)

// SeatConflictError reports the seats that are already held by another live
// booking, so the caller can re-select.
type SeatConflictError struct {
	SeatIDs []uuid.UUID
	Labels  []string
}

func (e *SeatConflictError) Error() string {
	if len(e.Labels) > 0 {
		return "seat conflict: " + strings.Join(e.Labels, ", ")
	}
	ids := make([]string, len(e.SeatIDs))
	for i, id := range e.SeatIDs {
		ids[i] = id.String()
	}
	return "seat conflict: " + strings.Join(ids, ", ")
}
