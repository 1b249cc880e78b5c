package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/dialogue"
	"github.com/healthcareplus/scheduling-agent/internal/extract"
	"github.com/healthcareplus/scheduling-agent/internal/notify"
	redisclient "github.com/healthcareplus/scheduling-agent/internal/redis"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

var testNow = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (http.Handler, *scheduling.Service, *scheduling.MemoryRepository) {
	t.Helper()

	logger := zap.NewNop()
	repo := scheduling.NewMemoryRepository()
	svc := scheduling.NewService(repo, redisclient.NewLocalLocker(), logger).
		WithClock(func() time.Time { return testNow })

	_, err := svc.EnsureHorizon(context.Background(), scheduling.DoctorNames())
	require.NoError(t, err)

	router := dialogue.NewRouter(svc, extract.NewNameResolver(nil, logger), nil,
		notify.NewSimulatedSender(logger), logger)
	sessions := dialogue.NewSessionManager(router, logger)

	handler := NewRouter(RouterConfig{
		Sessions: sessions,
		Repo:     repo,
		Logger:   logger,
		Env:      "test",
		Version:  "test",
	})
	return handler, svc, repo
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if out != nil {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out), "body: %s", rec.Body.String())
	}
	return rec
}

func TestLiveness(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	var resp LivenessResponse
	rec := doJSON(t, handler, http.MethodGet, "/health/live", "", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPostMessage(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	var resp MessageResponse
	rec := doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "start conversation"}`, &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Contains(t, resp.Reply, "Welcome to HealthCare Plus Medical Center")
	assert.Equal(t, string(dialogue.StageGreeting), resp.Stage)
}

func TestPostMessageRejectsEmptyMessage(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	var resp ErrorResponse
	rec := doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "   "}`, &resp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "empty_message", resp.Error)
}

func TestPostMessageRejectsBadJSON(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	var resp ErrorResponse
	rec := doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": `, &resp)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", resp.Error)
}

func TestGetConversation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "start conversation"}`, nil)
	doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "I would like to schedule an appointment"}`, nil)

	var resp ConversationResponse
	rec := doJSON(t, handler, http.MethodGet, "/conversations/s1", "", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1", resp.SessionID)
	assert.Equal(t, string(dialogue.StagePatientLookup), resp.Stage)
	assert.Equal(t, string(dialogue.IntentSchedule), resp.Intent)
	require.Len(t, resp.Messages, 4)
	assert.Equal(t, "Hello", resp.Messages[0].Content)
}

func TestResetConversation(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "start conversation"}`, nil)
	doJSON(t, handler, http.MethodPost, "/conversations/s1/messages",
		`{"message": "schedule"}`, nil)

	rec := doJSON(t, handler, http.MethodPost, "/conversations/s1/reset", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp ConversationResponse
	doJSON(t, handler, http.MethodGet, "/conversations/s1", "", &resp)
	assert.Equal(t, string(dialogue.StageGreeting), resp.Stage)
	assert.Empty(t, resp.Messages)
}

func TestAppointmentsReport(t *testing.T) {
	handler, svc, _ := newTestHandler(t)

	appt, err := svc.Book(context.Background(), scheduling.BookingRequest{
		FirstName:        "John",
		LastName:         "Doe",
		DOB:              "1985-03-15",
		Email:            "john.doe@email.com",
		Doctor:           "Dr. Emily Chen",
		Date:             "2025-09-02",
		Time:             "09:00",
		Duration:         scheduling.ReturningVisitMinutes,
		IsReturning:      true,
		InsuranceCarrier: "Self-Pay",
	})
	require.NoError(t, err)

	var resp AppointmentsReportResponse
	rec := doJSON(t, handler, http.MethodGet, "/reports/appointments", "", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, appt.ID, resp.Appointments[0].ID)
	assert.Equal(t, "Dr. Emily Chen", resp.Appointments[0].Doctor)
	assert.Equal(t, "Confirmed", resp.Appointments[0].Status)
}

func TestPatientsReport(t *testing.T) {
	handler, _, repo := newTestHandler(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPatient(ctx, scheduling.PatientRecord{
		FirstName: "John", LastName: "Doe", DOB: "1985-03-15", IsReturning: true,
	}))
	require.NoError(t, repo.UpsertPatient(ctx, scheduling.PatientRecord{
		FirstName: "Lisa", LastName: "Brown", DOB: "1995-09-05", IsReturning: false,
	}))

	var resp PatientsReportResponse
	rec := doJSON(t, handler, http.MethodGet, "/reports/patients", "", &resp)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, resp.Returning)
	assert.Equal(t, 1, resp.New)
	assert.Equal(t, 2, resp.Total)
}
