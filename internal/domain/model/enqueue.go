package model

// EnqueueRequest is the body accepted by the enqueue endpoint.
type EnqueueRequest struct {
	Content        string  `json:"content"                   validate:"required,max=32000"`
	ConversationID *string `json:"conversation_id,omitempty" validate:"omitempty,uuid"`
}

// EnqueueResult reports the identifiers created by an enqueue.
type EnqueueResult struct {
	MessageID      string `json:"message_id"`
	JobID          string `json:"job_id"`
	ConversationID string `json:"conversation_id"`
}

// CreateJobWithMessageRequest inserts a user message and its queued job atomically.
type CreateJobWithMessageRequest struct {
	Message    CreateMessageRequest
	MaxRetries int
}

// JobOutcome is the result of processing one claimed job.
type JobOutcome struct {
	JobID      string    `json:"job_id"`
	Status     JobStatus `json:"status"`
	ResponseID string    `json:"response_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"error_code,omitempty"`
}

// WorkerRunResult summarises a worker invocation. An empty Outcomes slice means no job was queued.
type WorkerRunResult struct {
	Outcomes []JobOutcome `json:"outcomes"`
}

// Empty reports whether the invocation found no work.
func (r WorkerRunResult) Empty() bool { return len(r.Outcomes) == 0 }
