package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenderBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	s := NewSender("smtp.local", 25, "noreply@cets.local")
	s.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := s.SendEmail(context.Background(), "dana@example.edu", "Attendance warning", "You have been absent.")
	require.NoError(t, err)

	assert.Equal(t, "smtp.local:25", gotAddr)
	assert.Equal(t, "noreply@cets.local", gotFrom)
	assert.Equal(t, []string{"dana@example.edu"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Attendance warning")
	assert.Contains(t, string(gotMsg), "You have been absent.")
}

func TestSenderHonoursCancelledContext(t *testing.T) {
	s := NewSender("smtp.local", 25, "noreply@cets.local")
	called := false
	s.send = func(addr, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.SendEmail(ctx, "dana@example.edu", "x", "y")
	require.Error(t, err)
	assert.False(t, called)
}
