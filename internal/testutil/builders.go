package testutil

import (
	"github.com/google/uuid"
	"github.com/target/inferq/internal/domain/model"
)

// TestUserID is the default owner used by builders.
const TestUserID = "user-test-1"

// JobRequestBuilder provides a fluent interface for enqueue requests in tests.
type JobRequestBuilder struct {
	req *model.CreateJobWithMessageRequest
}

// NewJobRequest creates a builder for a user message in a fresh conversation.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobWithMessageRequest{
			Message: model.CreateMessageRequest{
				ConversationID: uuid.NewString(),
				UserID:         TestUserID,
				Role:           model.RoleUser,
				Content:        "hello",
			},
		},
	}
}

// WithContent sets the message content.
func (b *JobRequestBuilder) WithContent(content string) *JobRequestBuilder {
	b.req.Message.Content = content
	return b
}

// WithUser sets the owning user.
func (b *JobRequestBuilder) WithUser(userID string) *JobRequestBuilder {
	b.req.Message.UserID = userID
	return b
}

// WithConversation sets the conversation id.
func (b *JobRequestBuilder) WithConversation(conversationID string) *JobRequestBuilder {
	b.req.Message.ConversationID = conversationID
	return b
}

// WithMaxRetries sets max_retries on the job.
func (b *JobRequestBuilder) WithMaxRetries(n int) *JobRequestBuilder {
	b.req.MaxRetries = n
	return b
}

// Build returns the request.
func (b *JobRequestBuilder) Build() *model.CreateJobWithMessageRequest {
	out := *b.req
	return &out
}

// AssistantReply builds a CreateMessageRequest answering msg.
func AssistantReply(msg *model.Message, content string) *model.CreateMessageRequest {
	return &model.CreateMessageRequest{
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		Role:           model.RoleAssistant,
		Content:        content,
	}
}

// UnitVector returns a dim-length vector with 1 at position hot and 0 elsewhere.
func UnitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot%dim] = 1
	return v
}
