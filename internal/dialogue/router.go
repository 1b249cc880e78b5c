package dialogue

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/extract"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

// IntakeSender delivers the new patient intake form. A failed send is a soft
// failure; the conversation reports it and continues.
type IntakeSender interface {
	SendIntakeForm(ctx context.Context, email, patientName string) error
}

var (
	cancelKeywords   = []string{"cancel", "cancellation", "remove", "delete", "reschedule"}
	scheduleKeywords = []string{"schedule", "book", "appointment", "new", "visit", "see doctor", "make", "like"}
	selfPayKeywords  = []string{"no insurance", "self pay", "self-pay", "i don't have", "paying myself", "cash", "no"}
)

const cancellationReason = "Patient requested cancellation via AI assistant"

// maxChain bounds the action-stage chain in one turn. The longest legal chain
// is insurance -> confirmation -> forms.
const maxChain = 4

// Router advances a conversation one user message at a time. Stages that
// need no user input (confirmation, form distribution, slot listing after a
// doctor pick) chain within the same turn and their replies concatenate.
type Router struct {
	sched      *scheduling.Service
	resolver   *extract.NameResolver
	capability extract.Capability
	notifier   IntakeSender
	logger     *zap.Logger
}

func NewRouter(sched *scheduling.Service, resolver *extract.NameResolver, capability extract.Capability, notifier IntakeSender, logger *zap.Logger) *Router {
	return &Router{
		sched:      sched,
		resolver:   resolver,
		capability: capability,
		notifier:   notifier,
		logger:     logger,
	}
}

// stepResult is what a stage handler produces: the reply text, the stage the
// conversation moves to, and whether the next stage runs immediately.
type stepResult struct {
	reply string
	next  Stage
	chain bool
}

// Step appends the user message, routes to a stage, and runs the stage chain.
// On error the state keeps the last successfully reached stage, so the next
// message retries from there.
func (r *Router) Step(ctx context.Context, st *State, userText string) (string, error) {
	st.Messages = append(st.Messages, Message{Role: RoleUser, Content: userText})

	stage := r.route(st)
	input := userText

	var parts []string
	for i := 0; i < maxChain; i++ {
		res, err := r.runStage(ctx, st, stage, input)
		if err != nil {
			return "", err
		}

		if res.reply != "" {
			parts = append(parts, res.reply)
		}
		st.Stage = res.next
		if !res.chain {
			break
		}
		stage = res.next
		input = ""
	}

	reply := strings.Join(parts, "\n\n")
	if reply == "" {
		reply = idleReply
	}
	st.Messages = append(st.Messages, Message{Role: RoleAssistant, Content: reply})
	return reply, nil
}

// route picks the stage for this turn: first message greets, a cancel intent
// sticks to the cancellation flow, a schedule intent resumes the stored
// scheduling stage.
func (r *Router) route(st *State) Stage {
	if len(st.Messages) <= 1 {
		return StageGreeting
	}

	switch st.Intent {
	case IntentCancel:
		if st.Stage == StageCompleted {
			return StageCompleted
		}
		return StageCancellation
	case IntentSchedule:
		if st.Stage == "" {
			return StagePatientLookup
		}
		return st.Stage
	}

	if st.Stage == "" {
		return StageGreeting
	}
	return st.Stage
}

func (r *Router) runStage(ctx context.Context, st *State, stage Stage, input string) (stepResult, error) {
	switch stage {
	case StageGreeting:
		return r.greeting(st, input), nil
	case StagePatientLookup:
		return r.patientLookup(ctx, st, input)
	case StageSmartScheduling:
		return r.smartScheduling(st, input), nil
	case StageCalendar:
		return r.calendar(ctx, st, input)
	case StageInsurance:
		return r.insurance(ctx, st, input), nil
	case StageConfirmation:
		return r.confirmation(ctx, st)
	case StageForms:
		return r.formDistribution(ctx, st), nil
	case StageCancellation:
		return r.cancellation(ctx, st, input)
	case StageCompleted:
		return stepResult{next: StageCompleted}, nil
	default:
		return r.greeting(st, input), nil
	}
}

func (r *Router) greeting(st *State, input string) stepResult {
	if len(st.Messages) <= 1 {
		return stepResult{reply: welcomeReply, next: StageGreeting}
	}

	lowered := strings.ToLower(input)
	if containsAny(lowered, cancelKeywords) {
		st.Intent = IntentCancel
		return stepResult{reply: beginCancellationReply, next: StageCancellation}
	}
	if containsAny(lowered, scheduleKeywords) {
		st.Intent = IntentSchedule
		return stepResult{reply: beginSchedulingReply, next: StagePatientLookup}
	}
	return stepResult{reply: clarifyIntentReply, next: StageGreeting}
}

// patientLookup collects the identity checklist one field per turn, then
// classifies the patient against the directory and offers the doctor menu.
func (r *Router) patientLookup(ctx context.Context, st *State, input string) (stepResult, error) {
	input = strings.TrimSpace(input)
	if input != "" {
		if missing := st.Patient.MissingLookupFields(); len(missing) > 0 {
			r.captureLookupField(ctx, st, missing[0], input)
		}
	}

	missing := st.Patient.MissingLookupFields()
	if len(missing) > 0 {
		var completed []string
		for _, f := range []string{fieldFirstName, fieldLastName, fieldDOB, fieldLocation, fieldEmail} {
			if !contains(missing, f) {
				completed = append(completed, f)
			}
		}
		reply := collectionProgressReply(completed, lookupFieldQuestions[missing[0]])
		return stepResult{reply: reply, next: StagePatientLookup}, nil
	}

	returning, err := r.sched.LookupPatient(ctx, st.Patient.FirstName, st.Patient.LastName, st.Patient.DOB)
	if err != nil {
		return stepResult{}, err
	}
	st.Patient.IsReturning = returning
	st.Patient.LookedUp = true

	return stepResult{reply: patientFoundReply(st.Patient), next: StageSmartScheduling}, nil
}

func (r *Router) captureLookupField(ctx context.Context, st *State, field, input string) {
	switch field {
	case fieldFirstName:
		first, last, ok := r.resolver.Resolve(ctx, input)
		if !ok {
			r.logger.Debug("ignoring non-informative reply", zap.String("input", input))
			return
		}
		st.Patient.FirstName = first
		if last != "" {
			st.Patient.LastName = last
		}
	case fieldLastName:
		st.Patient.LastName = input
	case fieldDOB:
		st.Patient.DOB = extract.NormalizeDate(input)
	case fieldLocation:
		st.Patient.Location = input
	case fieldEmail:
		st.Patient.Email = extract.ExtractEmail(input)
	}
}

// smartScheduling fixes the visit duration from the patient type and waits
// for a doctor preference. A recognized doctor chains straight into the slot
// listing.
func (r *Router) smartScheduling(st *State, input string) stepResult {
	duration := scheduling.NewVisitMinutes
	if st.Patient.IsReturning {
		duration = scheduling.ReturningVisitMinutes
	}
	st.Appointment.Duration = duration

	doctor := st.Appointment.Doctor
	if doctor == "" {
		if matched, ok := scheduling.MatchDoctor(input); ok {
			doctor = matched
		}
	}

	if doctor == "" {
		return stepResult{reply: selectDoctorReply, next: StageSmartScheduling}
	}

	st.Appointment.Doctor = doctor
	return stepResult{
		reply: doctorChosenReply(doctor, duration, st.Patient.IsReturning),
		next:  StageCalendar,
		chain: true,
	}
}

// calendar lists open slots and accepts a numeric pick. Out-of-range numbers
// reprompt; anything non-numeric refreshes the listing.
func (r *Router) calendar(ctx context.Context, st *State, input string) (stepResult, error) {
	if input != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(input)); err == nil {
			idx := n - 1
			if idx < 0 || idx >= len(st.OfferedSlots) {
				return stepResult{reply: invalidSlotReply(len(st.OfferedSlots)), next: StageCalendar}, nil
			}

			slot := st.OfferedSlots[idx]
			st.Appointment.Doctor = slot.Doctor
			st.Appointment.Date = slot.Date
			st.Appointment.Time = slot.Time
			return stepResult{reply: slotChosenReply(slot), next: StageInsurance}, nil
		}
	}

	slots, err := r.sched.AvailableSlots(ctx, st.Appointment.Doctor)
	if err != nil {
		return stepResult{}, err
	}

	if len(slots) == 0 {
		st.Appointment.Doctor = ""
		st.OfferedSlots = nil
		return stepResult{reply: noSlotsReply, next: StageSmartScheduling}, nil
	}

	st.OfferedSlots = slots
	return stepResult{reply: slotListReply(slots), next: StageCalendar}, nil
}

// insurance accepts self-pay or extracts the coverage triple, merging only
// non-empty values. Once complete it chains into confirmation.
func (r *Router) insurance(ctx context.Context, st *State, input string) stepResult {
	if input != "" {
		lowered := strings.ToLower(input)
		if containsAny(lowered, selfPayKeywords) {
			st.Insurance.Carrier = "Self-Pay"
			st.Insurance.MemberID = "N/A"
			st.Insurance.GroupNumber = "N/A"
			return stepResult{reply: selfPayReply, next: StageConfirmation, chain: true}
		}

		if r.capability != nil {
			extracted, err := r.capability.ExtractInsurance(ctx, input)
			if err != nil {
				r.logger.Warn("insurance extraction failed", zap.Error(err))
			} else {
				st.Insurance.Merge(extracted)
			}
		}
	}

	missing := st.Insurance.Missing()
	if len(missing) == 0 {
		return stepResult{reply: insuranceCompleteReply, next: StageConfirmation, chain: true}
	}

	if st.Insurance == (InsuranceInfo{}) {
		return stepResult{reply: insurancePromptReply, next: StageInsurance}
	}
	return stepResult{reply: "Please provide your **" + fieldTitle(missing[0]) + "**.", next: StageInsurance}
}

// confirmation books the appointment. It consumes no user input, so a failed
// booking leaves the stage here and the next message retries the commit.
func (r *Router) confirmation(ctx context.Context, st *State) (stepResult, error) {
	appt, err := r.sched.Book(ctx, scheduling.BookingRequest{
		FirstName:        st.Patient.FirstName,
		LastName:         st.Patient.LastName,
		DOB:              st.Patient.DOB,
		Email:            st.Patient.Email,
		Location:         st.Patient.Location,
		Doctor:           st.Appointment.Doctor,
		Date:             st.Appointment.Date,
		Time:             st.Appointment.Time,
		Duration:         st.Appointment.Duration,
		IsReturning:      st.Patient.IsReturning,
		InsuranceCarrier: st.Insurance.Carrier,
		MemberID:         st.Insurance.MemberID,
		GroupNumber:      st.Insurance.GroupNumber,
	})
	if err != nil {
		return stepResult{}, err
	}

	st.AppointmentID = appt.ID
	return stepResult{reply: confirmationReply(st, appt.ID), next: StageForms, chain: true}, nil
}

// formDistribution sends intake forms to new patients and closes the
// conversation.
func (r *Router) formDistribution(ctx context.Context, st *State) stepResult {
	var formReply string
	switch {
	case st.Patient.IsReturning:
		formReply = returningPatientFormsReply
	case st.Patient.Email == "":
		formReply = newPatientFormsNoEmailReply
	default:
		name := st.Patient.FirstName + " " + st.Patient.LastName
		if err := r.notifier.SendIntakeForm(ctx, st.Patient.Email, name); err != nil {
			r.logger.Warn("intake form delivery failed",
				zap.String("email", st.Patient.Email), zap.Error(err))
			formReply = newPatientFormsFailedReply
		} else {
			formReply = newPatientFormsSentReply
		}
	}

	return stepResult{reply: formReply + "\n\n" + reminderFooter, next: StageCompleted}
}

// cancellation verifies identity over the short checklist, then cancels the
// most recent confirmed appointment. Field capture is deliberately naive:
// first token for first name, last token for last name.
func (r *Router) cancellation(ctx context.Context, st *State, input string) (stepResult, error) {
	input = strings.TrimSpace(input)
	if input != "" {
		if missing := st.Patient.MissingCancellationFields(); len(missing) > 0 {
			tokens := strings.Fields(input)
			switch missing[0] {
			case fieldFirstName:
				if len(tokens) > 0 {
					st.Patient.FirstName = tokens[0]
				} else {
					st.Patient.FirstName = input
				}
			case fieldLastName:
				if len(tokens) > 0 {
					st.Patient.LastName = tokens[len(tokens)-1]
				} else {
					st.Patient.LastName = input
				}
			case fieldDOB:
				st.Patient.DOB = extract.NormalizeDate(input)
			}
		}
	}

	missing := st.Patient.MissingCancellationFields()
	if len(missing) > 0 {
		question := lookupFieldQuestions[missing[0]]
		if st.Patient == (PatientInfo{}) {
			question = "To cancel your appointment, I need to verify your identity. What is your first name?"
		}
		return stepResult{reply: question, next: StageCancellation}, nil
	}

	appt, err := r.sched.Cancel(ctx, st.Patient.FirstName, st.Patient.LastName, st.Patient.DOB, cancellationReason)
	if err != nil {
		if errors.Is(err, scheduling.ErrAppointmentNotFound) {
			return stepResult{reply: appointmentNotFoundReply(st.Patient), next: StageCompleted}, nil
		}
		r.logger.Error("cancellation failed", zap.Error(err))
		return stepResult{reply: cancellationFailedReply, next: StageCompleted}, nil
	}

	return stepResult{reply: cancellationDoneReply(appt), next: StageCompleted}, nil
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
