package model

import (
	"errors"
	"time"
)

// ErrNoJobsAvailable is returned when no queued job can be claimed.
var ErrNoJobsAvailable = errors.New("no jobs available")

// JobStatus represents the lifecycle state of an inference job.
type JobStatus string

const (
	// JobStatusQueued indicates the job waits to be claimed.
	JobStatusQueued JobStatus = "queued"
	// JobStatusProcessing indicates a worker holds the claim.
	JobStatusProcessing JobStatus = "processing"
	// JobStatusCompleted indicates the reply was stored.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates the job terminally failed.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusQueued || s == JobStatusProcessing || s == JobStatusCompleted ||
		s == JobStatusFailed
}

// Terminal reports whether the status can no longer change.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// InferenceJob is a unit of queued work: produce a reply to MessageID.
type InferenceJob struct {
	ID              string     `json:"id"                          db:"id"`
	MessageID       string     `json:"message_id"                  db:"message_id"`
	UserID          string     `json:"user_id"                     db:"user_id"`
	Status          JobStatus  `json:"status"                      db:"status"`
	ResultMessageID *string    `json:"result_message_id,omitempty" db:"result_message_id"`
	RetryCount      int        `json:"retry_count"                 db:"retry_count"`
	MaxRetries      int        `json:"max_retries"                 db:"max_retries"`
	LastError       *string    `json:"last_error,omitempty"        db:"last_error"`
	ClaimedAt       *time.Time `json:"claimed_at,omitempty"        db:"claimed_at"`
	LeaseExpiresAt  *time.Time `json:"lease_expires_at,omitempty"  db:"lease_expires_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"      db:"completed_at"`
	CreatedAt       time.Time  `json:"created_at"                  db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"                  db:"updated_at"`
}

// ClaimedJob is a job in processing state returned by the claim protocol,
// together with the message data needed to run inference.
type ClaimedJob struct {
	InferenceJob
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content"`
}

// FailJobRequest describes a failed processing attempt.
type FailJobRequest struct {
	JobID  string
	Reason string
	// Retryable re-queues the job while retry_count < max_retries.
	Retryable bool
}

// DeleteOldJobsParams groups parameters for deleting old terminal jobs.
type DeleteOldJobsParams struct {
	Status    JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// JobStats counts inference jobs by status.
type JobStats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// ErrJobNotClaimed is returned when a state transition requires a processing job
// but the job has already left that state.
var ErrJobNotClaimed = errors.New("job is not in processing state")
