package dialogue

import (
	"fmt"
	"strings"

	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

// Canned reply text for the workflow stages. Formatting is markdown; the web
// client renders it.

const welcomeReply = `Hello! Welcome to HealthCare Plus Medical Center. 🏥

I'm your AI scheduling assistant. I can help you with:
• **Scheduling a new appointment**
• **Canceling an existing appointment**

How can I assist you today?`

const clarifyIntentReply = `I'd be happy to help! Could you please specify if you'd like to:

1. **Schedule a new appointment**
2. **Cancel an existing appointment**

Please let me know which option you prefer.`

const beginSchedulingReply = "Great! I'll help you schedule an appointment. Let me start by getting some information. \nWhat is your First Name?"

const beginCancellationReply = "I'll help you cancel your appointment. Let me gather some information first."

const selectDoctorReply = "Please select one of the available doctors to continue with your appointment."

const noSlotsReply = `I'm sorry, there are no available slots for the selected doctor right now.

Would you like to:
1. Try the other doctor
2. Check different dates

Please let me know your preference.`

const insurancePromptReply = `Please provide your insurance information, or type "self-pay" if you don't have insurance:

• **Insurance Carrier** (e.g., Blue Cross Blue Shield, Aetna)
• **Member ID**
• **Group Number**

You can provide all details at once or type "self-pay" if paying out of pocket.`

const selfPayReply = "Understood. I've marked you as a **self-pay patient**. Let me confirm your appointment details now."

const insuranceCompleteReply = "Thank you! I have all your insurance information. Let me confirm your appointment details."

const idleReply = "I'm here to help! How can I assist you with scheduling or canceling an appointment today?"

const apologyReply = "I'm experiencing technical difficulties. Please try again, or contact our office at (555) 123-4567 for assistance."

const newPatientFormsSentReply = `📋 **New Patient Forms**

As a new patient, I've sent the intake form to your email address. Please:
• Complete the form before your appointment
• Bring it with you or submit it online
• Arrive 15 minutes early for check-in`

const newPatientFormsFailedReply = `📋 **New Patient Forms**

I tried to send your intake form, but there was an issue with the email delivery.
Please contact our office at (555) 123-4567 to receive your forms, or arrive 15 minutes early to complete them at the clinic.`

const newPatientFormsNoEmailReply = `📋 **New Patient Forms**

As a new patient, you'll need to complete intake forms. Please arrive 15 minutes early to fill them out, or contact our office at (555) 123-4567 to receive them in advance.`

const returningPatientFormsReply = "As a returning patient, no additional forms are needed. Just arrive on time for your appointment!"

const reminderFooter = `🔔 **Reminder System**
You'll receive appointment reminders via email and SMS before your visit.

Is there anything else I can help you with today?`

const cancellationFailedReply = `❌ **Cancellation Error**

I'm sorry, but I was unable to cancel your appointment. This might be due to a system issue.

Please contact our office directly at:
📞 **(555) 123-4567**
📧 **appointments@healthcareplus.com**

Our staff will be happy to assist you with the cancellation.`

var lookupFieldQuestions = map[string]string{
	fieldFirstName: "What is your first name?",
	fieldLastName:  "What is your last name?",
	fieldDOB:       "What is your date of birth? Please use MM/DD/YYYY format.",
	fieldLocation:  "What is your home address?",
	fieldEmail:     "What is your email address?",
}

// fieldTitle turns a checklist field id into its display form, e.g.
// "member_id" into "Member Id".
func fieldTitle(field string) string {
	words := strings.Split(field, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// collectionProgressReply prefixes the next question with the fields already
// captured.
func collectionProgressReply(completed []string, question string) string {
	if len(completed) == 0 {
		return question
	}

	titles := make([]string, len(completed))
	for i, f := range completed {
		titles[i] = fieldTitle(f)
	}
	return fmt.Sprintf("Got it! ✅ **%s**\n\n%s", strings.Join(titles, ", "), question)
}

func patientFoundReply(p PatientInfo) string {
	patientType := "new patient"
	if p.IsReturning {
		patientType = "returning patient"
	}

	var menu strings.Builder
	for _, d := range scheduling.Doctors {
		fmt.Fprintf(&menu, "• **%s** (%s)\n", d.Name, d.Specialty)
	}

	return fmt.Sprintf(`Perfect! I found you in our system as a **%s**, %s.

**Your Information:**
• **Name:** %s %s
• **DOB:** %s
• **Email:** %s

Which doctor would you prefer for your appointment?
%s
Please select your preferred doctor.`,
		patientType, p.FirstName,
		p.FirstName, p.LastName, p.DOB, p.Email, menu.String())
}

func doctorChosenReply(doctor string, duration int, returning bool) string {
	patientType := "new"
	if returning {
		patientType = "returning"
	}
	return fmt.Sprintf(`Excellent choice! I'm scheduling a **%d-minute appointment** with **%s** for a %s patient.

Let me check their availability...`, duration, doctor, patientType)
}

func slotListReply(slots []scheduling.SlotRecord) string {
	var list strings.Builder
	for i, s := range slots {
		fmt.Fprintf(&list, "**%d.** %s - %s at %s\n", i+1, s.Doctor, s.Date, s.Time)
	}

	return fmt.Sprintf(`Here are the available appointment slots:

%s
Please select a slot by entering the number (1-%d).`, list.String(), len(slots))
}

func slotChosenReply(s scheduling.SlotRecord) string {
	return fmt.Sprintf(`Perfect! You've selected:

**Doctor:** %s
**Date:** %s
**Time:** %s

Now I need to collect your insurance information to complete the booking.`, s.Doctor, s.Date, s.Time)
}

func invalidSlotReply(count int) string {
	return fmt.Sprintf("Please choose a valid slot number between 1 and %d.", count)
}

func confirmationReply(st *State, appointmentID string) string {
	return fmt.Sprintf(`🎉 **APPOINTMENT CONFIRMED** 🎉

**Appointment Details:**
• **Patient:** %s %s
• **Doctor:** %s
• **Date & Time:** %s at %s
• **Duration:** %d minutes
• **Insurance:** %s
• **Appointment ID:** %s

✅ Your appointment has been successfully booked!
📧 You'll receive a confirmation email shortly with all the details.`,
		st.Patient.FirstName, st.Patient.LastName,
		st.Appointment.Doctor, st.Appointment.Date, st.Appointment.Time,
		st.Appointment.Duration, st.Insurance.Carrier, appointmentID)
}

func appointmentNotFoundReply(p PatientInfo) string {
	return fmt.Sprintf(`I couldn't find an active appointment for **%s %s**.

This could be because:
• The appointment was already cancelled
• The name or date of birth doesn't match our records
• There might be a spelling difference

Would you like to try again with different information, or would you prefer to call our office at (555) 123-4567 for assistance?`,
		p.FirstName, p.LastName)
}

func cancellationDoneReply(appt *scheduling.AppointmentRecord) string {
	return fmt.Sprintf(`✅ **Appointment Successfully Cancelled**

**Cancelled Appointment Details:**
• **Patient:** %s %s
• **Doctor:** %s
• **Date & Time:** %s at %s
• **Appointment ID:** %s

Your appointment slot has been freed up for other patients. If you'd like to reschedule, I can help you book a new appointment right away!

Would you like to schedule a new appointment now?`,
		appt.PatientFirstName, appt.PatientLastName,
		appt.Doctor, appt.Date, appt.Time, appt.ID)
}
