package core

import (
	"context"
	"time"

	"github.com/target/inferq/internal/domain/model"
)

// Repository interfaces consumed by the service layer. Implementations live in internal/data.

// MessageRepository defines the interface for message data operations.
type MessageRepository interface {
	Create(ctx context.Context, req *model.CreateMessageRequest) (*model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	// ListByConversation returns messages owned by opts.UserID in chronological order.
	ListByConversation(ctx context.Context, opts model.ListMessagesOptions) ([]*model.Message, error)
}

// InferenceJobRepository defines the interface for inference job data operations.
type InferenceJobRepository interface {
	// CreateWithMessage inserts the user message and its queued job atomically.
	CreateWithMessage(ctx context.Context, req *model.CreateJobWithMessageRequest) (*model.Message, *model.InferenceJob, error)
	GetByID(ctx context.Context, id string) (*model.InferenceJob, error)
	// ClaimNext moves the oldest queued job to processing. Returns model.ErrNoJobsAvailable when the queue is empty.
	ClaimNext(ctx context.Context, leaseSeconds int) (*model.ClaimedJob, error)
	// CompleteWithReply stores the assistant reply and completes the processing job atomically.
	// Returns false and stores nothing when the job was not processing.
	CompleteWithReply(ctx context.Context, id string, reply *model.CreateMessageRequest) (*model.Message, bool, error)
	// Fail marks a processing job failed, or requeues it when req.Retryable and retries remain.
	Fail(ctx context.Context, req model.FailJobRequest) (*model.InferenceJob, error)
	// WaitForJobAdded blocks until a new job notification arrives or ctx is done.
	WaitForJobAdded(ctx context.Context) error
	Stats(ctx context.Context) (*model.JobStats, error)
}

// ReaperRepository defines cleanup operations over inference jobs.
type ReaperRepository interface {
	// FailStaleQueuedJobs marks queued jobs older than maxAge as failed and returns the count.
	FailStaleQueuedJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)
	// DeleteOldJobs removes terminal jobs in the given status older than MaxAge.
	DeleteOldJobs(ctx context.Context, params model.DeleteOldJobsParams) (int64, error)
}

// EmbeddingRepository defines the interface for embedding data operations.
type EmbeddingRepository interface {
	// Upsert inserts or replaces the embedding keyed by message id.
	Upsert(ctx context.Context, req *model.UpsertEmbeddingRequest) (*model.Embedding, error)
	GetByMessageID(ctx context.Context, messageID string) (*model.Embedding, error)
	SearchSimilar(ctx context.Context, q model.SimilarityQuery) ([]*model.SimilarMessage, error)
}
