package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		status   JobStatus
		valid    bool
		terminal bool
	}{
		{JobStatusQueued, true, false},
		{JobStatusProcessing, true, false},
		{JobStatusCompleted, true, true},
		{JobStatusFailed, true, true},
		{JobStatus("running"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
}

func TestMessageRole_UnmarshalText(t *testing.T) {
	var r MessageRole
	require.NoError(t, r.UnmarshalText([]byte(" Assistant ")))
	assert.Equal(t, RoleAssistant, r)
	require.Error(t, r.UnmarshalText([]byte("system")))
}

func TestCreateMessageRequest_Validate(t *testing.T) {
	valid := CreateMessageRequest{ConversationID: "c", UserID: "u", Role: RoleUser, Content: "hello"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*CreateMessageRequest)
		want   string
	}{
		{"missing conversation", func(r *CreateMessageRequest) { r.ConversationID = "" }, "conversation_id"},
		{"missing user", func(r *CreateMessageRequest) { r.UserID = " " }, "user_id"},
		{"bad role", func(r *CreateMessageRequest) { r.Role = "system" }, "role"},
		{"blank content", func(r *CreateMessageRequest) { r.Content = "\n\t" }, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			err := req.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestWorkerRunResult_Empty(t *testing.T) {
	assert.True(t, WorkerRunResult{}.Empty())
	assert.False(t, WorkerRunResult{Outcomes: []JobOutcome{{JobID: "j"}}}.Empty())
}
