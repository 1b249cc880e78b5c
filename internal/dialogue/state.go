// Package dialogue implements the conversational appointment workflow: a
// staged state machine that collects patient identity, doctor preference,
// slot choice, and insurance, then books or cancels through the scheduling
// service.
package dialogue

import (
	"github.com/healthcareplus/scheduling-agent/internal/extract"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

// Stage identifies where a conversation is in the workflow.
type Stage string

const (
	StageGreeting        Stage = "greeting"
	StagePatientLookup   Stage = "patient_lookup"
	StageSmartScheduling Stage = "smart_scheduling"
	StageCalendar        Stage = "calendar_integration"
	StageInsurance       Stage = "insurance_collection"
	StageConfirmation    Stage = "appointment_confirmation"
	StageForms           Stage = "form_distribution"
	StageCancellation    Stage = "cancellation"
	StageCompleted       Stage = "completed"
)

// Intent is the top-level goal detected during greeting.
type Intent string

const (
	IntentNone     Intent = ""
	IntentSchedule Intent = "schedule"
	IntentCancel   Intent = "cancel"
)

// Role tags a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// PatientInfo is the identity block collected field by field. Empty string
// means "not collected yet".
type PatientInfo struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	DOB       string `json:"dob,omitempty"`
	Location  string `json:"location,omitempty"`
	Email     string `json:"email,omitempty"`

	IsReturning bool `json:"is_returning"`
	LookedUp    bool `json:"looked_up"`
}

const (
	fieldFirstName = "first_name"
	fieldLastName  = "last_name"
	fieldDOB       = "dob"
	fieldLocation  = "location"
	fieldEmail     = "email"
)

// MissingLookupFields lists the scheduling checklist fields still empty, in
// collection order.
func (p PatientInfo) MissingLookupFields() []string {
	return p.missing([]string{fieldFirstName, fieldLastName, fieldDOB, fieldLocation, fieldEmail})
}

// MissingCancellationFields lists the shorter identity checklist used when
// cancelling.
func (p PatientInfo) MissingCancellationFields() []string {
	return p.missing([]string{fieldFirstName, fieldLastName, fieldDOB})
}

func (p PatientInfo) missing(fields []string) []string {
	values := map[string]string{
		fieldFirstName: p.FirstName,
		fieldLastName:  p.LastName,
		fieldDOB:       p.DOB,
		fieldLocation:  p.Location,
		fieldEmail:     p.Email,
	}

	var out []string
	for _, f := range fields {
		if values[f] == "" {
			out = append(out, f)
		}
	}
	return out
}

// AppointmentInfo accumulates the booking parameters.
type AppointmentInfo struct {
	Doctor   string `json:"doctor,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

// InsuranceInfo is the coverage triple; all three must be present before
// confirmation.
type InsuranceInfo struct {
	Carrier     string `json:"carrier,omitempty"`
	MemberID    string `json:"member_id,omitempty"`
	GroupNumber string `json:"group_number,omitempty"`
}

// Missing lists the still-empty coverage fields in collection order.
func (i InsuranceInfo) Missing() []string {
	var out []string
	if i.Carrier == "" {
		out = append(out, "carrier")
	}
	if i.MemberID == "" {
		out = append(out, "member_id")
	}
	if i.GroupNumber == "" {
		out = append(out, "group_number")
	}
	return out
}

// Merge copies non-empty extracted values in. Filled fields are never
// overwritten by empty extractions.
func (i *InsuranceInfo) Merge(ex extract.Insurance) {
	if ex.Carrier != "" {
		i.Carrier = ex.Carrier
	}
	if ex.MemberID != "" {
		i.MemberID = ex.MemberID
	}
	if ex.GroupNumber != "" {
		i.GroupNumber = ex.GroupNumber
	}
}

// State is the full per-session conversation state.
type State struct {
	SessionID     string                  `json:"session_id"`
	Messages      []Message               `json:"messages"`
	Stage         Stage                   `json:"current_stage"`
	Intent        Intent                  `json:"intent"`
	Patient       PatientInfo             `json:"patient_info"`
	Appointment   AppointmentInfo         `json:"appointment_info"`
	Insurance     InsuranceInfo           `json:"insurance_info"`
	OfferedSlots  []scheduling.SlotRecord `json:"available_slots,omitempty"`
	AppointmentID string                  `json:"appointment_id,omitempty"`
}

func NewState(sessionID string) *State {
	return &State{
		SessionID: sessionID,
		Stage:     StageGreeting,
	}
}
