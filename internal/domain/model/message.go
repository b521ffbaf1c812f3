// Package model defines the core data types of the inference queue: messages,
// inference jobs, and embeddings.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MessageRole identifies who authored a message.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type MessageRole string

const (
	// RoleUser marks a message submitted through the enqueue endpoint.
	RoleUser MessageRole = "user"
	// RoleAssistant marks a reply produced by the worker pipeline.
	RoleAssistant MessageRole = "assistant"
)

// Valid returns true if the role is one of the supported roles.
func (r MessageRole) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// UnmarshalText implements encoding.TextUnmarshaler for MessageRole.
func (r *MessageRole) UnmarshalText(text []byte) error {
	v := MessageRole(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid message role: %q", string(text))
	}
	*r = v
	return nil
}

// Message is an immutable chat message grouped by conversation.
type Message struct {
	ID             string      `json:"id"              db:"id"`
	ConversationID string      `json:"conversation_id" db:"conversation_id"`
	UserID         string      `json:"user_id"         db:"user_id"`
	Role           MessageRole `json:"role"            db:"role"`
	Content        string      `json:"content"         db:"content"`
	CreatedAt      time.Time   `json:"created_at"      db:"created_at"`
}

// CreateMessageRequest describes a message to insert.
type CreateMessageRequest struct {
	ConversationID string
	UserID         string
	Role           MessageRole
	Content        string
}

// Validate checks the fields required to persist a message.
func (r *CreateMessageRequest) Validate() error {
	if strings.TrimSpace(r.ConversationID) == "" {
		return errors.New("conversation_id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("user_id is required")
	}
	if !r.Role.Valid() {
		return fmt.Errorf("invalid message role: %q", r.Role)
	}
	if strings.TrimSpace(r.Content) == "" {
		return errors.New("content is required and cannot be empty")
	}
	return nil
}

// ListMessagesOptions scopes a conversation history query.
type ListMessagesOptions struct {
	ConversationID string
	UserID         string
	Limit          int
}
