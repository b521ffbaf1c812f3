package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/target/inferq/internal/domain/model"
)

const messageColumns = `id, conversation_id, user_id, role, content, created_at`

const (
	defaultMessageListLimit = 100
	maxMessageListLimit     = 500
)

// MessageRepo provides database operations for chat messages.
type MessageRepo struct {
	DB *sql.DB
}

// NewMessageRepo creates a new MessageRepo.
func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{DB: db}
}

// Create inserts a single message outside any job transition.
func (r *MessageRepo) Create(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error) {
	if req == nil {
		return nil, errors.New("create message request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	msg, err := scanMessage(r.DB.QueryRowContext(ctx, insertMessageSQL,
		req.ConversationID, req.UserID, string(req.Role), req.Content,
	))
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// GetByID retrieves a message by its ID.
func (r *MessageRepo) GetByID(ctx context.Context, id string) (*model.Message, error) {
	msg, err := scanMessage(r.DB.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// ListByConversation returns the user's messages in a conversation, oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, opts model.ListMessagesOptions) ([]*model.Message, error) {
	limit := opts.Limit
	switch {
	case limit <= 0:
		limit = defaultMessageListLimit
	case limit > maxMessageListLimit:
		limit = maxMessageListLimit
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE conversation_id = $1 AND user_id = $2
		ORDER BY created_at ASC, id ASC
		LIMIT $3
	`, opts.ConversationID, opts.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]*model.Message, 0, limit)
	for rows.Next() {
		msg, scanErr := scanMessage(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan message: %w", scanErr)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func scanMessage(scanner rowScanner) (*model.Message, error) {
	msg := &model.Message{}
	var role string
	if err := scanner.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.UserID,
		&role,
		&msg.Content,
		&msg.CreatedAt,
	); err != nil {
		return nil, err
	}
	msg.Role = model.MessageRole(role)
	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}
