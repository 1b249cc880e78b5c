package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	return NewPgRepository(mock), mock
}

func patientRows(p PatientRecord) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "first_name", "last_name", "dob", "is_returning", "email", "location", "phone",
		"insurance_carrier", "member_id", "group_number", "created_at", "updated_at",
	}).AddRow(
		p.ID, p.FirstName, p.LastName, p.DOB, p.IsReturning, p.Email, p.Location, p.Phone,
		p.InsuranceCarrier, p.MemberID, p.GroupNumber, p.CreatedAt, p.UpdatedAt,
	)
}

func TestPgFindPatient(t *testing.T) {
	repo, mock := newMockRepo(t)

	want := PatientRecord{
		ID:          uuid.New(),
		FirstName:   "John",
		LastName:    "Doe",
		DOB:         "1985-03-15",
		IsReturning: true,
		Email:       "john.doe@email.com",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	mock.ExpectQuery(`SELECT (.+) FROM patients`).
		WithArgs("John", "Doe", "1985-03-15").
		WillReturnRows(patientRows(want))

	got, err := repo.FindPatient(context.Background(), "John", "Doe", "1985-03-15")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.True(t, got.IsReturning)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFindPatientNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM patients`).
		WithArgs("Lisa", "Brown", "1995-09-05").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.FindPatient(context.Background(), "Lisa", "Brown", "1995-09-05")
	assert.ErrorIs(t, err, ErrPatientNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgAvailableSlots(t *testing.T) {
	repo, mock := newMockRepo(t)

	after := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"doctor_name", "slot_date", "slot_time", "is_available"}).
		AddRow("Dr. Emily Chen", "2025-09-02", "09:00", true).
		AddRow("Dr. Emily Chen", "2025-09-02", "09:30", true)

	mock.ExpectQuery(`SELECT (.+) FROM schedule_slots`).
		WithArgs("Dr. Emily Chen", "2025-09-01 12:00", DefaultSlotLimit).
		WillReturnRows(rows)

	slots, err := repo.AvailableSlots(context.Background(), "Dr. Emily Chen", after, DefaultSlotLimit)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:00", slots[0].Time)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgSetSlotAvailabilityNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(`UPDATE schedule_slots`).
		WithArgs("Dr. Emily Chen", "2025-09-02", "09:00", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetSlotAvailability(context.Background(), "Dr. Emily Chen", "2025-09-02", "09:00", false)
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCommitBooking(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := AppointmentRecord{
		ID:               "3F2A9C1B",
		PatientFirstName: "Jane",
		PatientLastName:  "Smith",
		PatientDOB:       "1990-07-22",
		Doctor:           "Dr. David Rodriguez",
		Date:             "2025-09-02",
		Time:             "09:30",
		DurationMinutes:  NewVisitMinutes,
		Status:           StatusConfirmed,
		CreatedAt:        time.Now(),
	}
	newPatient := &PatientRecord{
		ID:          uuid.New(),
		FirstName:   "Jane",
		LastName:    "Smith",
		DOB:         "1990-07-22",
		IsReturning: true,
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE schedule_slots`).
		WithArgs(appt.Doctor, appt.Date, appt.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO appointments`).
		WithArgs(appt.ID, appt.PatientFirstName, appt.PatientLastName, appt.PatientDOB,
			appt.PatientPhone, appt.PatientEmail, appt.PatientLocation, appt.Doctor,
			appt.Date, appt.Time, appt.DurationMinutes, appt.IsReturning,
			appt.InsuranceCarrier, appt.MemberID, appt.GroupNumber, appt.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO patients`).
		WithArgs(newPatient.ID, newPatient.FirstName, newPatient.LastName, newPatient.DOB,
			newPatient.IsReturning, newPatient.Email, newPatient.Location, newPatient.Phone,
			newPatient.InsuranceCarrier, newPatient.MemberID, newPatient.GroupNumber).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := repo.CommitBooking(context.Background(), appt, newPatient)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgCommitBookingSlotTaken(t *testing.T) {
	repo, mock := newMockRepo(t)

	appt := AppointmentRecord{
		ID:     "3F2A9C1B",
		Doctor: "Dr. David Rodriguez",
		Date:   "2025-09-02",
		Time:   "09:30",
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE schedule_slots`).
		WithArgs(appt.Doctor, appt.Date, appt.Time).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.CommitBooking(context.Background(), appt, nil)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
