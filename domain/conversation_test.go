package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalPair(t *testing.T) {
	req := require.New(t)

	tests := []struct {
		name       string
		a, b       string
		wantFirst  string
		wantSecond string
	}{
		{"already ordered", "alice", "bob", "alice", "bob"},
		{"reversed", "bob", "alice", "alice", "bob"},
		{"identical", "alice", "alice", "alice", "alice"},
		{"uuid-like identities", "f0000000", "a0000000", "a0000000", "f0000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second := CanonicalPair(tt.a, tt.b)
			req.Equal(tt.wantFirst, first)
			req.Equal(tt.wantSecond, second)
		})
	}
}

func TestConversation_HasParticipant(t *testing.T) {
	req := require.New(t)
	conv := Conversation{ParticipantA: "alice", ParticipantB: "bob"}

	req.True(conv.HasParticipant("alice"))
	req.True(conv.HasParticipant("bob"))
	req.False(conv.HasParticipant("carol"))
}
