package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository uses. pgxmock satisfies it
// too, which is how the repository is tested without a live database.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PgRepository struct {
	pool DB
}

func NewPgRepository(pool DB) *PgRepository {
	return &PgRepository{pool: pool}
}

// querier abstracts over pool and transaction so the scan helpers and
// shared statements work inside CommitBooking/CommitCancellation too.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const patientColumns = `id, first_name, last_name, dob, is_returning, email, location, phone,
       insurance_carrier, member_id, group_number, created_at, updated_at`

const appointmentColumns = `appointment_id, patient_first_name, patient_last_name, patient_dob,
       patient_phone, patient_email, patient_location, doctor_name,
       appointment_date, appointment_time, duration_minutes, is_returning_patient,
       insurance_carrier, insurance_member_id, insurance_group_number,
       status, created_at, cancellation_reason, cancelled_at`

// Helpers

func scanPatient(row pgx.Row) (*PatientRecord, error) {
	var p PatientRecord

	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DOB,
		&p.IsReturning,
		&p.Email,
		&p.Location,
		&p.Phone,
		&p.InsuranceCarrier,
		&p.MemberID,
		&p.GroupNumber,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	return &p, nil
}

func scanSlot(row pgx.Row) (*SlotRecord, error) {
	var s SlotRecord

	err := row.Scan(
		&s.Doctor,
		&s.Date,
		&s.Time,
		&s.IsAvailable,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &s, nil
}

func scanAppointment(row pgx.Row) (*AppointmentRecord, error) {
	var a AppointmentRecord
	var cancelledAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.PatientFirstName,
		&a.PatientLastName,
		&a.PatientDOB,
		&a.PatientPhone,
		&a.PatientEmail,
		&a.PatientLocation,
		&a.Doctor,
		&a.Date,
		&a.Time,
		&a.DurationMinutes,
		&a.IsReturning,
		&a.InsuranceCarrier,
		&a.MemberID,
		&a.GroupNumber,
		&a.Status,
		&a.CreatedAt,
		&a.CancellationReason,
		&cancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.CancelledAt = cancelledAt
	return &a, nil
}

// Patient directory

func (r *PgRepository) FindPatient(ctx context.Context, first, last, dob string) (*PatientRecord, error) {
	return findPatient(ctx, r.pool, first, last, dob)
}

func findPatient(ctx context.Context, q querier, first, last, dob string) (*PatientRecord, error) {
	row := q.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		WHERE lower(first_name) = lower($1)
		  AND lower(last_name) = lower($2)
		  AND dob = $3
	`, first, last, dob)
	return scanPatient(row)
}

func (r *PgRepository) UpsertPatient(ctx context.Context, p PatientRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (id, first_name, last_name, dob, is_returning, email, location, phone,
		                      insurance_carrier, member_id, group_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		ON CONFLICT (lower(first_name), lower(last_name), dob)
		DO UPDATE SET is_returning = EXCLUDED.is_returning,
		              email = EXCLUDED.email,
		              location = EXCLUDED.location,
		              phone = EXCLUDED.phone,
		              insurance_carrier = EXCLUDED.insurance_carrier,
		              member_id = EXCLUDED.member_id,
		              group_number = EXCLUDED.group_number,
		              updated_at = now()
	`, p.ID, p.FirstName, p.LastName, p.DOB, p.IsReturning, p.Email, p.Location, p.Phone,
		p.InsuranceCarrier, p.MemberID, p.GroupNumber)
	if err != nil {
		return fmt.Errorf("upsert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) DeletePatient(ctx context.Context, first, last, dob string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM patients
		WHERE lower(first_name) = lower($1)
		  AND lower(last_name) = lower($2)
		  AND dob = $3
	`, first, last, dob)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}

func (r *PgRepository) CountPatients(ctx context.Context) (returning, fresh int, err error) {
	row := r.pool.QueryRow(ctx, `
		SELECT count(*) FILTER (WHERE is_returning),
		       count(*) FILTER (WHERE NOT is_returning)
		FROM patients
	`)
	if err := row.Scan(&returning, &fresh); err != nil {
		return 0, 0, fmt.Errorf("count patients: %w", err)
	}
	return returning, fresh, nil
}

// Doctor availability

func (r *PgRepository) GetSlot(ctx context.Context, doctor, date, tm string) (*SlotRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT doctor_name, slot_date, slot_time, is_available
		FROM schedule_slots
		WHERE doctor_name = $1 AND slot_date = $2 AND slot_time = $3
	`, doctor, date, tm)
	return scanSlot(row)
}

func (r *PgRepository) AvailableSlots(ctx context.Context, doctor string, after time.Time, limit int) ([]SlotRecord, error) {
	// slot_date/slot_time are fixed-width YYYY-MM-DD / HH:MM strings, so the
	// concatenation compares correctly as text.
	rows, err := r.pool.Query(ctx, `
		SELECT doctor_name, slot_date, slot_time, is_available
		FROM schedule_slots
		WHERE doctor_name = $1
		  AND is_available
		  AND slot_date || ' ' || slot_time > $2
		ORDER BY slot_date, slot_time
		LIMIT $3
	`, doctor, after.Format(SlotDateLayout+" "+SlotTimeLayout), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotRecord
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertSlots(ctx context.Context, slots []SlotRecord) (int, error) {
	inserted := 0
	for _, s := range slots {
		tag, err := r.pool.Exec(ctx, `
			INSERT INTO schedule_slots (doctor_name, slot_date, slot_time, is_available)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (doctor_name, slot_date, slot_time) DO NOTHING
		`, s.Doctor, s.Date, s.Time, s.IsAvailable)
		if err != nil {
			return inserted, fmt.Errorf("insert slot %s: %w", s.Key(), err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

func (r *PgRepository) SetSlotAvailability(ctx context.Context, doctor, date, tm string, available bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE schedule_slots
		SET is_available = $4
		WHERE doctor_name = $1 AND slot_date = $2 AND slot_time = $3
	`, doctor, date, tm, available)
	if err != nil {
		return fmt.Errorf("set slot availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Appointment ledger

func (r *PgRepository) GetAppointment(ctx context.Context, id string) (*AppointmentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) LatestConfirmedByPatient(ctx context.Context, first, last, dob string) (*AppointmentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'Confirmed'
		  AND lower(patient_first_name) = lower($1)
		  AND lower(patient_last_name) = lower($2)
		  AND patient_dob = $3
		ORDER BY created_at DESC
		LIMIT 1
	`, first, last, dob)
	return scanAppointment(row)
}

func (r *PgRepository) ConfirmedForSlot(ctx context.Context, doctor, date, tm string) (*AppointmentRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'Confirmed'
		  AND doctor_name = $1 AND appointment_date = $2 AND appointment_time = $3
	`, doctor, date, tm)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointments(ctx context.Context) ([]AppointmentRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentRecord
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// Atomic commits

func (r *PgRepository) CommitBooking(ctx context.Context, appt AppointmentRecord, newPatient *PatientRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Consume the slot only if it is still free; this is the final guard
	// behind the distributed lock.
	tag, err := tx.Exec(ctx, `
		UPDATE schedule_slots
		SET is_available = false
		WHERE doctor_name = $1 AND slot_date = $2 AND slot_time = $3
		  AND is_available
	`, appt.Doctor, appt.Date, appt.Time)
	if err != nil {
		return fmt.Errorf("consume slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotUnavailable
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (appointment_id, patient_first_name, patient_last_name, patient_dob,
		                          patient_phone, patient_email, patient_location, doctor_name,
		                          appointment_date, appointment_time, duration_minutes, is_returning_patient,
		                          insurance_carrier, insurance_member_id, insurance_group_number,
		                          status, created_at, cancellation_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 'Confirmed', $16, '')
	`, appt.ID, appt.PatientFirstName, appt.PatientLastName, appt.PatientDOB,
		appt.PatientPhone, appt.PatientEmail, appt.PatientLocation, appt.Doctor,
		appt.Date, appt.Time, appt.DurationMinutes, appt.IsReturning,
		appt.InsuranceCarrier, appt.MemberID, appt.GroupNumber, appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if newPatient != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO patients (id, first_name, last_name, dob, is_returning, email, location, phone,
			                      insurance_carrier, member_id, group_number, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (lower(first_name), lower(last_name), dob)
			DO UPDATE SET is_returning = EXCLUDED.is_returning,
			              email = EXCLUDED.email,
			              location = EXCLUDED.location,
			              updated_at = now()
		`, newPatient.ID, newPatient.FirstName, newPatient.LastName, newPatient.DOB,
			newPatient.IsReturning, newPatient.Email, newPatient.Location, newPatient.Phone,
			newPatient.InsuranceCarrier, newPatient.MemberID, newPatient.GroupNumber)
		if err != nil {
			return fmt.Errorf("insert new patient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

func (r *PgRepository) CommitCancellation(ctx context.Context, id, reason string, at time.Time, removePatient bool) (*AppointmentRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin cancellation tx: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'Cancelled',
		    cancellation_reason = $2,
		    cancelled_at = $3
		WHERE appointment_id = $1
		  AND status = 'Confirmed'
		RETURNING `+appointmentColumns+`
	`, id, reason, at)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// Distinguish a missing record from a terminal one.
			if _, getErr := getAppointmentTx(ctx, tx, id); getErr == nil {
				return nil, ErrAlreadyCancelled
			}
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("cancel appointment: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE schedule_slots
		SET is_available = true
		WHERE doctor_name = $1 AND slot_date = $2 AND slot_time = $3
	`, appt.Doctor, appt.Date, appt.Time)
	if err != nil {
		return nil, fmt.Errorf("free slot: %w", err)
	}

	if removePatient {
		_, err = tx.Exec(ctx, `
			DELETE FROM patients
			WHERE lower(first_name) = lower($1)
			  AND lower(last_name) = lower($2)
			  AND dob = $3
		`, appt.PatientFirstName, appt.PatientLastName, appt.PatientDOB)
		if err != nil {
			return nil, fmt.Errorf("remove cancelled patient: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cancellation tx: %w", err)
	}
	return appt, nil
}

func getAppointmentTx(ctx context.Context, q querier, id string) (*AppointmentRecord, error) {
	row := q.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE appointment_id = $1
	`, id)
	return scanAppointment(row)
}
