package api

import (
	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

type MessageRequest struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Stage     string `json:"current_stage"`
}

type ConversationResponse struct {
	SessionID     string                   `json:"session_id"`
	Stage         string                   `json:"current_stage"`
	Intent        string                   `json:"intent"`
	Messages      []dialogue.Message       `json:"messages"`
	Patient       dialogue.PatientInfo     `json:"patient_info"`
	Appointment   dialogue.AppointmentInfo `json:"appointment_info"`
	Insurance     dialogue.InsuranceInfo   `json:"insurance_info"`
	OfferedSlots  []SlotView               `json:"available_slots,omitempty"`
	AppointmentID string                   `json:"appointment_id,omitempty"`
}

type SlotView struct {
	Doctor string `json:"doctor_name"`
	Date   string `json:"date"`
	Time   string `json:"time"`
}

type AppointmentView struct {
	ID               string `json:"appointment_id"`
	PatientFirstName string `json:"patient_first_name"`
	PatientLastName  string `json:"patient_last_name"`
	PatientDOB       string `json:"patient_dob"`
	PatientEmail     string `json:"patient_email"`
	Doctor           string `json:"doctor_name"`
	Date             string `json:"appointment_date"`
	Time             string `json:"appointment_time"`
	DurationMinutes  int    `json:"duration_minutes"`
	IsReturning      bool   `json:"is_returning_patient"`
	InsuranceCarrier string `json:"insurance_carrier"`
	Status           string `json:"status"`
}

type AppointmentsReportResponse struct {
	Appointments []AppointmentView `json:"appointments"`
	Total        int               `json:"total"`
}

type PatientsReportResponse struct {
	Returning int `json:"returning"`
	New       int `json:"new"`
	Total     int `json:"total"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func slotViews(slots []scheduling.SlotRecord) []SlotView {
	if len(slots) == 0 {
		return nil
	}
	out := make([]SlotView, len(slots))
	for i, s := range slots {
		out[i] = SlotView{Doctor: s.Doctor, Date: s.Date, Time: s.Time}
	}
	return out
}

func appointmentViews(appts []scheduling.AppointmentRecord) []AppointmentView {
	out := make([]AppointmentView, len(appts))
	for i, a := range appts {
		out[i] = AppointmentView{
			ID:               a.ID,
			PatientFirstName: a.PatientFirstName,
			PatientLastName:  a.PatientLastName,
			PatientDOB:       a.PatientDOB,
			PatientEmail:     a.PatientEmail,
			Doctor:           a.Doctor,
			Date:             a.Date,
			Time:             a.Time,
			DurationMinutes:  a.DurationMinutes,
			IsReturning:      a.IsReturning,
			InsuranceCarrier: a.InsuranceCarrier,
			Status:           string(a.Status),
		}
	}
	return out
}
