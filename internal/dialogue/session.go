package dialogue

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// conversationStarter is the synthetic first message web clients send to
// trigger the welcome reply.
const conversationStarter = "start conversation"

// SessionManager owns conversation state per session and serializes turns
// within a session. Turns in different sessions run concurrently.
type SessionManager struct {
	router *Router
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	state *State
}

func NewSessionManager(router *Router, logger *zap.Logger) *SessionManager {
	return &SessionManager{
		router:   router,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

func (m *SessionManager) get(sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{state: NewState(sessionID)}
		m.sessions[sessionID] = s
	}
	return s
}

// ProcessMessage runs one conversation turn and always returns something to
// say: workflow errors surface as an apology steering the caller to the
// office phone line, never as a failed request.
func (m *SessionManager) ProcessMessage(ctx context.Context, sessionID, text string) string {
	if text == conversationStarter {
		text = "Hello"
	}

	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	reply, err := m.router.Step(ctx, s.state, text)
	if err != nil {
		m.logger.Error("conversation turn failed",
			zap.String("session_id", sessionID),
			zap.String("stage", string(s.state.Stage)),
			zap.Error(err))
		s.state.Messages = append(s.state.Messages, Message{Role: RoleAssistant, Content: apologyReply})
		return apologyReply
	}
	return reply
}

// Reset discards the session's state. Resetting an unknown session is a
// no-op, so the operation is idempotent.
func (m *SessionManager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Snapshot returns a copy of the session's state for inspection. The slices
// are copied so callers cannot race with later turns.
func (m *SessionManager) Snapshot(sessionID string) State {
	s := m.get(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := *s.state
	snap.Messages = append([]Message(nil), s.state.Messages...)
	snap.OfferedSlots = append(snap.OfferedSlots[:0:0], s.state.OfferedSlots...)
	return snap
}
