package booking

import (
	"context"
	"errors"
	"time"
)

// StatusScheduled is the status of a newly booked appointment.
const StatusScheduled = "scheduled"

// DefaultDuration is used when no duration is configured.
const DefaultDuration = 60 * time.Minute

// ErrSlotTaken reports that the therapist already has an appointment at the time.
var ErrSlotTaken = errors.New("booking: slot already taken")

// Appointment is a booked session. (TherapistID, AppointmentTime) is unique.
type Appointment struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"studentId"`
	TherapistID     string    `json:"therapistId"`
	AppointmentTime time.Time `json:"appointmentTime"`
	DurationMinutes int       `json:"duration"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Store persists appointments. Create is an atomic check-and-insert: it
// returns false without error when the slot is already taken. The booking
// flow never calls Exists; it is the read-only slot query offered to other
// consumers of the appointment store and must not gate an insert.
type Store interface {
	Exists(ctx context.Context, therapistID string, at time.Time) (bool, error)
	Create(ctx context.Context, appt Appointment) (bool, error)
}
