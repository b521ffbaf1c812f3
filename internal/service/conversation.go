package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/target/inferq/internal/core"
	domainauth "github.com/target/inferq/internal/domain/auth"
	"github.com/target/inferq/internal/domain/model"
	apperrors "github.com/target/inferq/internal/errors"
)

// ConversationService reads conversation history for its owner.
type ConversationService struct {
	messages core.MessageRepository
}

// NewConversationService constructs a new ConversationService.
func NewConversationService(messages core.MessageRepository) (*ConversationService, error) {
	if messages == nil {
		return nil, errors.New("MessageRepository is required")
	}
	return &ConversationService{messages: messages}, nil
}

// ListMessages returns the caller's messages in conversationID, oldest first.
// Limits outside 1..500 are clamped by the store (default 100).
func (s *ConversationService) ListMessages(
	ctx context.Context,
	caller domainauth.Identity,
	conversationID string,
	limit int,
) ([]*model.Message, error) {
	if !caller.Valid() {
		return nil, apperrors.Unauthorized("a verified user is required")
	}
	if err := uuid.Validate(conversationID); err != nil {
		return nil, apperrors.ValidationField("conversation_id", "conversation_id must be a UUID")
	}

	msgs, err := s.messages.ListByConversation(ctx, model.ListMessagesOptions{
		ConversationID: conversationID,
		UserID:         caller.UserID,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list conversation %s: %w", conversationID, err)
	}
	return msgs, nil
}
