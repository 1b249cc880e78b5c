package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

func postMessageHandler(sessions *dialogue.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must not be empty")
			return
		}

		var req MessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "empty_message", "message must not be empty")
			return
		}

		reply := sessions.ProcessMessage(r.Context(), sessionID, req.Message)
		state := sessions.Snapshot(sessionID)

		writeJSON(w, http.StatusOK, MessageResponse{
			SessionID: sessionID,
			Reply:     reply,
			Stage:     string(state.Stage),
		})
	}
}

func resetConversationHandler(sessions *dialogue.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must not be empty")
			return
		}

		sessions.Reset(sessionID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "reset", "session_id": sessionID})
	}
}

func getConversationHandler(sessions *dialogue.SessionManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "invalid_session_id", "session id must not be empty")
			return
		}

		state := sessions.Snapshot(sessionID)
		writeJSON(w, http.StatusOK, ConversationResponse{
			SessionID:     sessionID,
			Stage:         string(state.Stage),
			Intent:        string(state.Intent),
			Messages:      state.Messages,
			Patient:       state.Patient,
			Appointment:   state.Appointment,
			Insurance:     state.Insurance,
			OfferedSlots:  slotViews(state.OfferedSlots),
			AppointmentID: state.AppointmentID,
		})
	}
}

func appointmentsReportHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := repo.ListAppointments(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, AppointmentsReportResponse{
			Appointments: appointmentViews(appts),
			Total:        len(appts),
		})
	}
}

func patientsReportHandler(repo scheduling.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returning, fresh, err := repo.CountPatients(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, PatientsReportResponse{
			Returning: returning,
			New:       fresh,
			Total:     returning + fresh,
		})
	}
}
