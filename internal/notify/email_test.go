package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSimulatedSender(t *testing.T) {
	s := NewSimulatedSender(zap.NewNop())
	assert.NoError(t, s.SendIntakeForm(context.Background(), "jane@example.com", "Jane Smith"))
}

func TestSMTPSenderHonorsCancelledContext(t *testing.T) {
	s := NewSMTPSender("localhost", 2525, "clinic@example.com", "secret", "", "", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendIntakeForm(ctx, "jane@example.com", "Jane Smith")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSMTPSenderFromDefaultsToUser(t *testing.T) {
	s := NewSMTPSender("localhost", 2525, "clinic@example.com", "secret", "", "", zap.NewNop())
	assert.Equal(t, "clinic@example.com", s.from)
}
