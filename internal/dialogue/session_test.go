package dialogue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthcareplus/scheduling-agent/internal/extract"
	redisclient "github.com/healthcareplus/scheduling-agent/internal/redis"
	"github.com/healthcareplus/scheduling-agent/internal/scheduling"
)

// failingRepo breaks patient lookups to exercise the apology path.
type failingRepo struct {
	*scheduling.MemoryRepository
}

func (f *failingRepo) FindPatient(context.Context, string, string, string) (*scheduling.PatientRecord, error) {
	return nil, errors.New("directory offline")
}

func TestProcessMessageApologizesOnFailure(t *testing.T) {
	repo := &failingRepo{MemoryRepository: scheduling.NewMemoryRepository()}
	logger := zap.NewNop()
	sched := scheduling.NewService(repo, redisclient.NewLocalLocker(), logger).
		WithClock(func() time.Time { return testNow })
	router := NewRouter(sched, extract.NewNameResolver(nil, logger), nil, &fakeNotifier{}, logger)
	sessions := NewSessionManager(router, logger)

	ctx := context.Background()
	sessions.ProcessMessage(ctx, "s1", "start conversation")
	sessions.ProcessMessage(ctx, "s1", "schedule")
	sessions.ProcessMessage(ctx, "s1", "I am John Doe")
	sessions.ProcessMessage(ctx, "s1", "03/15/1985")
	sessions.ProcessMessage(ctx, "s1", "123 Main St")

	// The final checklist field triggers the lookup, which fails.
	reply := sessions.ProcessMessage(ctx, "s1", "john.doe@email.com")
	assert.Equal(t, apologyReply, reply)

	// The stage survives the failure, so the next turn retries the lookup.
	state := sessions.Snapshot("s1")
	assert.Equal(t, StagePatientLookup, state.Stage)
	assert.Equal(t, apologyReply, state.Messages[len(state.Messages)-1].Content)
}

func TestStartConversationMapsToHello(t *testing.T) {
	h := newHarness(t, nil)

	reply := h.say(t, "s1", "start conversation")
	assert.Contains(t, reply, "Welcome to HealthCare Plus Medical Center")

	state := h.sessions.Snapshot("s1")
	require.Len(t, state.Messages, 2)
	assert.Equal(t, "Hello", state.Messages[0].Content)
	assert.Equal(t, RoleUser, state.Messages[0].Role)
	assert.Equal(t, RoleAssistant, state.Messages[1].Role)
}

func TestResetStartsOver(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.say(t, "s1", "start conversation")
	h.say(t, "s1", "schedule")
	h.say(t, "s1", "I am John Doe")

	h.sessions.Reset("s1")

	state := h.sessions.Snapshot("s1")
	assert.Equal(t, StageGreeting, state.Stage)
	assert.Empty(t, state.Patient.FirstName)

	// A reset session greets from scratch.
	reply := h.sessions.ProcessMessage(ctx, "s1", "start conversation")
	assert.Contains(t, reply, "Welcome to HealthCare Plus Medical Center")
}

func TestResetUnknownSessionIsIdempotent(t *testing.T) {
	h := newHarness(t, nil)

	h.sessions.Reset("never-seen")
	h.sessions.Reset("never-seen")

	state := h.sessions.Snapshot("never-seen")
	assert.Equal(t, StageGreeting, state.Stage)
	assert.Empty(t, state.Messages)
}

func TestSessionsAreIsolated(t *testing.T) {
	h := newHarness(t, nil)

	h.say(t, "a", "start conversation")
	h.say(t, "a", "schedule")
	h.say(t, "a", "I am John Doe")

	h.say(t, "b", "start conversation")
	h.say(t, "b", "cancel please")

	assert.Equal(t, "John", h.sessions.Snapshot("a").Patient.FirstName)
	assert.Equal(t, IntentSchedule, h.sessions.Snapshot("a").Intent)

	assert.Empty(t, h.sessions.Snapshot("b").Patient.FirstName)
	assert.Equal(t, IntentCancel, h.sessions.Snapshot("b").Intent)
}
