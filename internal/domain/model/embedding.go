package model

import "time"

// Embedding is the stored vector for one message.
type Embedding struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Vector    []float32 `json:"-"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EmbedRequest asks for an embedding of a stored message or raw content.
// At least one of MessageID and Content must be set.
type EmbedRequest struct {
	MessageID *string `json:"message_id,omitempty" validate:"omitempty,uuid"`
	Content   *string `json:"content,omitempty"    validate:"omitempty,max=32000"`
	UserID    *string `json:"user_id,omitempty"`
}

// EmbedResult reports what the embedding generator did.
type EmbedResult struct {
	MessageID string `json:"message_id,omitempty"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	// Stored is false when only content was supplied and there was no message to key the vector on.
	Stored bool `json:"stored"`
}

// UpsertEmbeddingRequest stores a vector keyed by message id.
type UpsertEmbeddingRequest struct {
	MessageID string
	UserID    string
	Vector    []float32
	Model     string
}

// SearchRequest is the body accepted by the similarity search endpoint.
type SearchRequest struct {
	Content string `json:"content"         validate:"required,max=32000"`
	Limit   int    `json:"limit,omitempty"`
}

// SimilarMessage is one similarity search hit.
type SimilarMessage struct {
	MessageID      string      `json:"message_id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	Distance       float64     `json:"distance"`
}

// SimilarityQuery scopes a nearest-neighbour lookup to one user.
type SimilarityQuery struct {
	UserID string
	Vector []float32
	Limit  int
}
