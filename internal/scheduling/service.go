package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	redisclient "github.com/healthcareplus/scheduling-agent/internal/redis"
)

// DefaultSlotLimit caps how many open slots are offered to a patient at once.
const DefaultSlotLimit = 8

// BookingRequest carries everything the confirmation stage has collected.
type BookingRequest struct {
	FirstName        string
	LastName         string
	DOB              string
	Phone            string
	Email            string
	Location         string
	Doctor           string
	Date             string
	Time             string
	Duration         int
	IsReturning      bool
	InsuranceCarrier string
	MemberID         string
	GroupNumber      string
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	logger *zap.Logger
	now    func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the service clock; used by tests and cmd/simulate.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// LookupPatient reports whether the identity tuple belongs to a returning
// patient. An unknown identity is a new patient, not an error.
func (s *Service) LookupPatient(ctx context.Context, first, last, dob string) (bool, error) {
	p, err := s.repo.FindPatient(ctx, first, last, dob)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup patient: %w", err)
	}
	return p.IsReturning, nil
}

// AvailableSlots returns up to DefaultSlotLimit future open slots for the
// doctor, earliest first.
func (s *Service) AvailableSlots(ctx context.Context, doctor string) ([]SlotRecord, error) {
	slots, err := s.repo.AvailableSlots(ctx, doctor, s.now(), DefaultSlotLimit)
	if err != nil {
		return nil, fmt.Errorf("list available slots: %w", err)
	}
	return slots, nil
}

// Book commits a booking: under the slot lock it re-checks that the slot is
// open and unclaimed, then writes the Confirmed ledger record, consumes the
// slot, and for new patients creates the directory record flagged returning,
// so the same identity is classified returning on any later visit.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*AppointmentRecord, error) {
	appt := AppointmentRecord{
		ID:               NewAppointmentID(),
		PatientFirstName: req.FirstName,
		PatientLastName:  req.LastName,
		PatientDOB:       req.DOB,
		PatientPhone:     req.Phone,
		PatientEmail:     req.Email,
		PatientLocation:  req.Location,
		Doctor:           req.Doctor,
		Date:             req.Date,
		Time:             req.Time,
		DurationMinutes:  req.Duration,
		IsReturning:      req.IsReturning,
		InsuranceCarrier: req.InsuranceCarrier,
		MemberID:         req.MemberID,
		GroupNumber:      req.GroupNumber,
		Status:           StatusConfirmed,
		CreatedAt:        s.now(),
	}

	var newPatient *PatientRecord
	if !req.IsReturning {
		newPatient = &PatientRecord{
			ID:               uuid.New(),
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			DOB:              req.DOB,
			IsReturning:      true, // returning after their first visit
			Email:            req.Email,
			Location:         req.Location,
			Phone:            req.Phone,
			InsuranceCarrier: req.InsuranceCarrier,
			MemberID:         req.MemberID,
			GroupNumber:      req.GroupNumber,
		}
	}

	err := s.locker.WithSlotLock(ctx, appt.SlotKey(), func(lockCtx context.Context) error {
		slot, err := s.repo.GetSlot(lockCtx, req.Doctor, req.Date, req.Time)
		if err != nil {
			return fmt.Errorf("load slot: %w", err)
		}
		if !slot.IsAvailable {
			return ErrSlotUnavailable
		}

		// Inside the critical section re-check for a confirmed appointment
		// holding this slot.
		existing, err := s.repo.ConfirmedForSlot(lockCtx, req.Doctor, req.Date, req.Time)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check confirmed appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotUnavailable
		}

		return s.repo.CommitBooking(lockCtx, appt, newPatient)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("doctor", appt.Doctor),
		zap.String("date", appt.Date),
		zap.String("time", appt.Time),
		zap.Bool("returning", appt.IsReturning))

	return &appt, nil
}

// Cancel finds the identity's most recent Confirmed appointment and cancels
// it: the ledger record transitions to Cancelled, the slot is freed, and if
// the appointment was the patient's first visit the directory record is
// removed, reverting the identity to unknown.
func (s *Service) Cancel(ctx context.Context, first, last, dob, reason string) (*AppointmentRecord, error) {
	appt, err := s.repo.LatestConfirmedByPatient(ctx, first, last, dob)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("find appointment to cancel: %w", err)
	}

	removePatient := !appt.IsReturning

	var cancelled *AppointmentRecord
	err = s.locker.WithSlotLock(ctx, appt.SlotKey(), func(lockCtx context.Context) error {
		var commitErr error
		cancelled, commitErr = s.repo.CommitCancellation(lockCtx, appt.ID, reason, s.now(), removePatient)
		return commitErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("appointment cancelled",
		zap.String("appointment_id", cancelled.ID),
		zap.String("doctor", cancelled.Doctor),
		zap.Bool("patient_removed", removePatient))

	return cancelled, nil
}

// EnsureHorizon inserts any missing half-hour slots for the doctors over the
// next HorizonDays weekdays, 9:00-17:00, marked available. Existing slots are
// left untouched so bookings survive horizon maintenance.
func (s *Service) EnsureHorizon(ctx context.Context, doctors []string) (int, error) {
	slots := HorizonSlots(doctors, s.now())
	inserted, err := s.repo.InsertSlots(ctx, slots)
	if err != nil {
		return inserted, fmt.Errorf("extend horizon: %w", err)
	}
	return inserted, nil
}

// HorizonSlots generates the full weekday slot grid starting tomorrow.
func HorizonSlots(doctors []string, now time.Time) []SlotRecord {
	var slots []SlotRecord

	day := now.AddDate(0, 0, 1)
	for i := 0; i < HorizonDays; i++ {
		if day.Weekday() != time.Saturday && day.Weekday() != time.Sunday {
			date := day.Format(SlotDateLayout)
			for hour := ClinicOpenHour; hour < ClinicCloseHour; hour++ {
				for _, minute := range []int{0, 30} {
					tm := fmt.Sprintf("%02d:%02d", hour, minute)
					for _, doctor := range doctors {
						slots = append(slots, SlotRecord{
							Doctor:      doctor,
							Date:        date,
							Time:        tm,
							IsAvailable: true,
						})
					}
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return slots
}
