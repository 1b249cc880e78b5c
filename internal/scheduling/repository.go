package scheduling

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrSlotUnavailable     = errors.New("slot is no longer available")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrAlreadyCancelled    = errors.New("appointment is already cancelled")
)

// Repository contains all store interactions needed by the service. It covers
// the three tables: patient directory, doctor availability, appointment
// ledger. Identity lookups match names case-insensitively and the date of
// birth exactly against its normalized form.
type Repository interface {
	// Patient directory
	FindPatient(ctx context.Context, first, last, dob string) (*PatientRecord, error)
	UpsertPatient(ctx context.Context, p PatientRecord) error
	DeletePatient(ctx context.Context, first, last, dob string) error
	CountPatients(ctx context.Context) (returning, fresh int, err error)

	// Doctor availability
	GetSlot(ctx context.Context, doctor, date, tm string) (*SlotRecord, error)
	// AvailableSlots returns open slots for the doctor strictly after the
	// given instant, earliest first, at most limit.
	AvailableSlots(ctx context.Context, doctor string, after time.Time, limit int) ([]SlotRecord, error)
	// InsertSlots adds slots, silently skipping ones that already exist.
	InsertSlots(ctx context.Context, slots []SlotRecord) (int, error)
	SetSlotAvailability(ctx context.Context, doctor, date, tm string, available bool) error

	// Appointment ledger
	GetAppointment(ctx context.Context, id string) (*AppointmentRecord, error)
	// LatestConfirmedByPatient returns the most recently created Confirmed
	// appointment for the identity tuple.
	LatestConfirmedByPatient(ctx context.Context, first, last, dob string) (*AppointmentRecord, error)
	ConfirmedForSlot(ctx context.Context, doctor, date, tm string) (*AppointmentRecord, error)
	ListAppointments(ctx context.Context) ([]AppointmentRecord, error)

	// Atomic commits. A booking must never flip slot availability without
	// also writing the ledger record, and vice versa; both run in a single
	// transaction together with the optional patient mutation.
	CommitBooking(ctx context.Context, appt AppointmentRecord, newPatient *PatientRecord) error
	CommitCancellation(ctx context.Context, id, reason string, at time.Time, removePatient bool) (*AppointmentRecord, error)
}
