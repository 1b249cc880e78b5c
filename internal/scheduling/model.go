package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// Appointment durations depend on whether the patient is returning or new.
const (
	ReturningVisitMinutes = 30
	NewVisitMinutes       = 60
)

// Clinic hours: half-hour slots, weekdays only, over a rolling horizon.
const (
	ClinicOpenHour  = 9
	ClinicCloseHour = 17
	SlotMinutes     = 30
	HorizonDays     = 14
	SlotDateLayout  = "2006-01-02"
	SlotTimeLayout  = "15:04"
)

type PatientRecord struct {
	ID               uuid.UUID
	FirstName        string
	LastName         string
	DOB              string // normalized YYYY-MM-DD, or the raw input when unparseable
	IsReturning      bool
	Email            string
	Location         string
	Phone            string
	InsuranceCarrier string
	MemberID         string
	GroupNumber      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type SlotRecord struct {
	Doctor      string
	Date        string // YYYY-MM-DD
	Time        string // HH:MM, 24-hour
	IsAvailable bool
}

// Key returns the natural key used for lock scoping and de-duplication.
func (s SlotRecord) Key() string {
	return s.Doctor + "|" + s.Date + "|" + s.Time
}

// StartTime parses the slot's date and time in the given location.
func (s SlotRecord) StartTime(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(SlotDateLayout+" "+SlotTimeLayout, s.Date+" "+s.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot start %q %q: %w", s.Date, s.Time, err)
	}
	return t, nil
}

// AppointmentRecord is a denormalized booking snapshot. It references the
// patient and slot by value so ledger history survives later mutation of
// either table.
type AppointmentRecord struct {
	ID                 string // short opaque token, e.g. "3F2A9C1B"
	PatientFirstName   string
	PatientLastName    string
	PatientDOB         string
	PatientPhone       string
	PatientEmail       string
	PatientLocation    string
	Doctor             string
	Date               string
	Time               string
	DurationMinutes    int
	IsReturning        bool
	InsuranceCarrier   string
	MemberID           string
	GroupNumber        string
	Status             AppointmentStatus
	CreatedAt          time.Time
	CancellationReason string
	CancelledAt        *time.Time
}

// SlotKey returns the natural key of the slot this appointment occupies.
func (a AppointmentRecord) SlotKey() string {
	return a.Doctor + "|" + a.Date + "|" + a.Time
}

// NewAppointmentID generates the short uppercase booking token shown to
// patients on confirmations.
func NewAppointmentID() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
