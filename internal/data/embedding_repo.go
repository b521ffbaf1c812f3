package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/target/inferq/internal/domain/model"
)

const (
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

// EmbeddingRepo stores message embeddings in a pgvector column.
type EmbeddingRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewEmbeddingRepo creates a new EmbeddingRepo. tp may be nil.
func NewEmbeddingRepo(db *sql.DB, tp TimeProvider) *EmbeddingRepo {
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &EmbeddingRepo{DB: db, timeProvider: tp}
}

// Upsert inserts the embedding for a message or replaces the stored vector and model.
func (r *EmbeddingRepo) Upsert(ctx context.Context, req *model.UpsertEmbeddingRequest) (*model.Embedding, error) {
	if req == nil {
		return nil, errors.New("upsert embedding request is required")
	}
	if req.MessageID == "" || req.UserID == "" {
		return nil, errors.New("message_id and user_id are required")
	}
	if len(req.Vector) == 0 {
		return nil, errors.New("embedding vector cannot be empty")
	}

	now := r.timeProvider.Now().UTC()
	emb, err := scanEmbedding(r.DB.QueryRowContext(ctx, `
		INSERT INTO embeddings (message_id, user_id, embedding, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (message_id) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    model = EXCLUDED.model,
		    updated_at = EXCLUDED.updated_at
		RETURNING message_id, user_id, embedding, model, created_at, updated_at
	`, req.MessageID, req.UserID, pgvector.NewVector(req.Vector), req.Model, now))
	if err != nil {
		return nil, fmt.Errorf("upsert embedding: %w", err)
	}
	return emb, nil
}

// GetByMessageID returns the stored embedding for a message.
func (r *EmbeddingRepo) GetByMessageID(ctx context.Context, messageID string) (*model.Embedding, error) {
	emb, err := scanEmbedding(r.DB.QueryRowContext(ctx, `
		SELECT message_id, user_id, embedding, model, created_at, updated_at
		FROM embeddings
		WHERE message_id = $1
	`, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmbeddingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding: %w", err)
	}
	return emb, nil
}

// SearchSimilar returns the user's messages nearest to q.Vector by cosine distance.
func (r *EmbeddingRepo) SearchSimilar(ctx context.Context, q model.SimilarityQuery) ([]*model.SimilarMessage, error) {
	if len(q.Vector) == 0 {
		return nil, errors.New("query vector cannot be empty")
	}
	limit := q.Limit
	switch {
	case limit <= 0:
		limit = defaultSearchLimit
	case limit > maxSearchLimit:
		limit = maxSearchLimit
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT m.id, m.conversation_id, m.role, m.content, e.embedding <=> $2 AS distance
		FROM embeddings e
		JOIN messages m ON m.id = e.message_id
		WHERE e.user_id = $1
		ORDER BY e.embedding <=> $2
		LIMIT $3
	`, q.UserID, pgvector.NewVector(q.Vector), limit)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	out := make([]*model.SimilarMessage, 0, limit)
	for rows.Next() {
		var (
			hit  model.SimilarMessage
			role string
		)
		if scanErr := rows.Scan(&hit.MessageID, &hit.ConversationID, &role, &hit.Content, &hit.Distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar message: %w", scanErr)
		}
		hit.Role = model.MessageRole(role)
		out = append(out, &hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar messages: %w", err)
	}
	return out, nil
}

func scanEmbedding(scanner rowScanner) (*model.Embedding, error) {
	var (
		emb model.Embedding
		vec pgvector.Vector
	)
	if err := scanner.Scan(&emb.MessageID, &emb.UserID, &vec, &emb.Model, &emb.CreatedAt, &emb.UpdatedAt); err != nil {
		return nil, err
	}
	emb.Vector = vec.Slice()
	emb.CreatedAt = emb.CreatedAt.UTC()
	emb.UpdatedAt = emb.UpdatedAt.UTC()
	return &emb, nil
}
