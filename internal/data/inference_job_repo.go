package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/target/inferq/internal/data/pgxutil"
	"github.com/target/inferq/internal/domain/model"
)

// JobAddedChannel is the LISTEN/NOTIFY channel signalled on every enqueue.
const JobAddedChannel = "inference_job_added"

// Advisory lock namespace for the lease sweep run ahead of each claim.
var advisoryLockRequeue = pgxutil.AdvisoryKey{Major: 1001, Minor: 1}

// leaseExpiredReason is recorded on jobs whose worker lost its lease.
const leaseExpiredReason = "lease expired"

// RepoConfig holds configuration options for the inference job repository.
type RepoConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider
}

// InferenceJobRepo provides database operations for the inference job queue.
type InferenceJobRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
	logger       *slog.Logger
}

// NewInferenceJobRepo creates a new InferenceJobRepo.
func NewInferenceJobRepo(db *sql.DB, cfg RepoConfig) *InferenceJobRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &InferenceJobRepo{
		DB:           db,
		timeProvider: tp,
		logger:       cfg.Logger,
	}
}

const jobColumns = `
  id,
  message_id,
  user_id,
  status,
  result_message_id,
  retry_count,
  max_retries,
  last_error,
  claimed_at,
  lease_expires_at,
  completed_at,
  created_at,
  updated_at
`

func prefixedJobColumns(alias string) string {
	cols := strings.Split(strings.TrimSpace(jobColumns), ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

const insertMessageSQL = `
  INSERT INTO messages (conversation_id, user_id, role, content)
  VALUES ($1, $2, $3, $4)
  RETURNING ` + messageColumns

const insertJobSQL = `
  INSERT INTO inference_jobs (message_id, user_id, status, max_retries)
  VALUES ($1, $2, 'queued', $3)
  RETURNING ` + jobColumns

// CreateWithMessage inserts the user message and its queued job in one transaction and
// signals JobAddedChannel. Either both rows exist afterwards or neither does.
func (r *InferenceJobRepo) CreateWithMessage(
	ctx context.Context,
	req *model.CreateJobWithMessageRequest,
) (*model.Message, *model.InferenceJob, error) {
	if req == nil {
		return nil, nil, errors.New("create job request is required")
	}
	if err := req.Message.Validate(); err != nil {
		return nil, nil, err
	}
	if req.MaxRetries < 0 {
		return nil, nil, errors.New("max_retries cannot be negative")
	}

	var (
		msg *model.Message
		job *model.InferenceJob
	)
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			m, err := scanMessage(tx.QueryRow(ctx, insertMessageSQL,
				req.Message.ConversationID,
				req.Message.UserID,
				string(req.Message.Role),
				req.Message.Content,
			))
			if err != nil {
				return fmt.Errorf("insert message: %w", err)
			}

			j, err := scanJob(tx.QueryRow(ctx, insertJobSQL, m.ID, m.UserID, req.MaxRetries))
			if err != nil {
				return fmt.Errorf("insert job: %w", err)
			}

			if _, err := tx.Exec(ctx, `SELECT pg_notify($1::text, $2::text)`, JobAddedChannel, j.ID); err != nil {
				return fmt.Errorf("send job notification: %w", err)
			}
			msg, job = m, j
			return nil
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return msg, job, nil
}

// GetByID retrieves a job by its ID.
func (r *InferenceJobRepo) GetByID(ctx context.Context, id string) (*model.InferenceJob, error) {
	job, err := scanJob(r.DB.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM inference_jobs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// requeueExpiredSQL returns processing jobs with an expired lease to the queue,
// charging one retry. Jobs that exhausted max_retries fail instead.
const requeueExpiredSQL = `
  UPDATE inference_jobs
  SET
    retry_count = retry_count + 1,
    status = CASE WHEN retry_count + 1 > max_retries THEN 'failed' ELSE 'queued' END,
    completed_at = CASE WHEN retry_count + 1 > max_retries THEN $1::timestamptz ELSE NULL END,
    last_error = $2,
    claimed_at = NULL,
    lease_expires_at = NULL,
    updated_at = $1
  WHERE status = 'processing'
    AND lease_expires_at IS NOT NULL
    AND lease_expires_at < $1`

// requeueExpired runs the lease sweep under an advisory lock so concurrent
// claimers do not contend on the same rows.
func (r *InferenceJobRepo) requeueExpired(ctx context.Context) (int64, error) {
	now := r.timeProvider.Now().UTC()
	n, err := pgxutil.LockedExec(ctx, r.DB, advisoryLockRequeue, requeueExpiredSQL, now, leaseExpiredReason)
	if err != nil {
		return 0, fmt.Errorf("requeue expired: %w", err)
	}
	if n > 0 && r.logger != nil {
		r.logger.WarnContext(ctx, "reclaimed expired job leases", "count", n)
	}
	return n, nil
}

// claimNextSQL selects the oldest queued job with SKIP LOCKED so concurrent
// claimers never receive the same row.
var claimNextSQL = `
  WITH next AS (
    SELECT id FROM inference_jobs
    WHERE status = 'queued'
    ORDER BY created_at ASC, id ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  ), claimed AS (
    UPDATE inference_jobs j
    SET
      status = 'processing',
      claimed_at = $1,
      lease_expires_at = $2,
      updated_at = $1
    FROM next
    WHERE j.id = next.id
    RETURNING j.*
  )
  SELECT ` + prefixedJobColumns("claimed") + `, m.conversation_id, m.content
  FROM claimed
  JOIN messages m ON m.id = claimed.message_id`

// ClaimNext moves the oldest queued job to processing and returns it with its message content.
func (r *InferenceJobRepo) ClaimNext(ctx context.Context, leaseSeconds int) (*model.ClaimedJob, error) {
	if leaseSeconds <= 0 {
		return nil, errors.New("leaseSeconds must be positive")
	}

	if _, err := r.requeueExpired(ctx); err != nil {
		return nil, err
	}

	var claimed *model.ClaimedJob
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			now := r.timeProvider.Now().UTC()
			leaseExpiresAt := now.Add(time.Duration(leaseSeconds) * time.Second)

			c := &model.ClaimedJob{}
			var data jobRowData
			dest := append(data.dest(&c.InferenceJob), &c.ConversationID, &c.Content)
			if err := tx.QueryRow(ctx, claimNextSQL, now, leaseExpiresAt).Scan(dest...); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return model.ErrNoJobsAvailable
				}
				return fmt.Errorf("claim job: %w", err)
			}
			data.apply(&c.InferenceJob)
			claimed = c
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// errJobNotProcessing rolls back a completion whose job already left processing.
var errJobNotProcessing = errors.New("job not processing")

const completeJobSQL = `
  UPDATE inference_jobs
  SET status = 'completed',
      result_message_id = $2,
      completed_at = $3,
      updated_at = $3,
      claimed_at = NULL,
      lease_expires_at = NULL,
      last_error = NULL
  WHERE id = $1 AND status = 'processing'`

// CompleteWithReply inserts the assistant reply and marks the processing job completed
// in one transaction. Returns false and persists nothing when the job is no longer
// processing, e.g. its lease was reclaimed.
func (r *InferenceJobRepo) CompleteWithReply(
	ctx context.Context,
	id string,
	reply *model.CreateMessageRequest,
) (*model.Message, bool, error) {
	if reply == nil {
		return nil, false, errors.New("reply message is required")
	}
	if err := reply.Validate(); err != nil {
		return nil, false, err
	}

	now := r.timeProvider.Now().UTC()
	var msg *model.Message
	err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			m, err := scanMessage(tx.QueryRow(ctx, insertMessageSQL,
				reply.ConversationID,
				reply.UserID,
				string(reply.Role),
				reply.Content,
			))
			if err != nil {
				return fmt.Errorf("insert reply: %w", err)
			}

			tag, err := tx.Exec(ctx, completeJobSQL, id, m.ID, now)
			if err != nil {
				return fmt.Errorf("complete job: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return errJobNotProcessing
			}
			msg = m
			return nil
		},
	})
	if errors.Is(err, errJobNotProcessing) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return msg, true, nil
}

// Fail records a failed attempt on a processing job. A retryable failure with retries
// left returns the job to the queue; anything else fails it terminally.
// Returns model.ErrJobNotClaimed when the job already left processing.
func (r *InferenceJobRepo) Fail(ctx context.Context, req model.FailJobRequest) (*model.InferenceJob, error) {
	now := r.timeProvider.Now().UTC()
	job, err := scanJob(r.DB.QueryRowContext(ctx, `
		UPDATE inference_jobs
		SET
		  last_error = $2,
		  retry_count = CASE WHEN $3 AND retry_count < max_retries THEN retry_count + 1 ELSE retry_count END,
		  status = CASE WHEN $3 AND retry_count < max_retries THEN 'queued' ELSE 'failed' END,
		  completed_at = CASE WHEN $3 AND retry_count < max_retries THEN NULL ELSE $4::timestamptz END,
		  claimed_at = NULL,
		  lease_expires_at = NULL,
		  updated_at = $4
		WHERE id = $1 AND status = 'processing'
		RETURNING `+jobColumns,
		req.JobID, req.Reason, req.Retryable, now,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrJobNotClaimed
	}
	if err != nil {
		return nil, fmt.Errorf("fail job: %w", err)
	}
	return job, nil
}

// Stats returns job counts by status.
func (r *InferenceJobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var s model.JobStats
	err := r.DB.QueryRowContext(ctx, `
  SELECT
    count(*) FILTER (WHERE status = 'queued')     AS queued,
    count(*) FILTER (WHERE status = 'processing') AS processing,
    count(*) FILTER (WHERE status = 'completed')  AS completed,
    count(*) FILTER (WHERE status = 'failed')     AS failed
  FROM inference_jobs
  `).Scan(&s.Queued, &s.Processing, &s.Completed, &s.Failed)
	if err != nil {
		return nil, fmt.Errorf("get job stats: %w", err)
	}
	return &s, nil
}

// WaitForJobAdded blocks until a notification arrives on JobAddedChannel or ctx is done.
func (r *InferenceJobRepo) WaitForJobAdded(ctx context.Context) error {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	quoted := pgx.Identifier{JobAddedChannel}.Sanitize()
	if _, err := conn.ExecContext(ctx, "LISTEN "+quoted); err != nil {
		return fmt.Errorf("listen %s: %w", JobAddedChannel, err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "UNLISTEN "+quoted)
	}()

	return conn.Raw(func(dc any) error {
		sc, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		_, notifyErr := sc.Conn().WaitForNotification(ctx)
		return notifyErr
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

type jobRowData struct {
	resultMessageID, lastError          sql.NullString
	claimedAt, leaseExpires, completeAt sql.NullTime
	status                              string
}

func (d *jobRowData) dest(job *model.InferenceJob) []any {
	return []any{
		&job.ID,
		&job.MessageID,
		&job.UserID,
		&d.status,
		&d.resultMessageID,
		&job.RetryCount,
		&job.MaxRetries,
		&d.lastError,
		&d.claimedAt,
		&d.leaseExpires,
		&d.completeAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	}
}

func (d *jobRowData) apply(job *model.InferenceJob) {
	job.Status = model.JobStatus(d.status)
	job.ResultMessageID = cloneNullableString(d.resultMessageID)
	job.LastError = cloneNullableString(d.lastError)
	job.ClaimedAt = cloneNullableTime(d.claimedAt)
	job.LeaseExpiresAt = cloneNullableTime(d.leaseExpires)
	job.CompletedAt = cloneNullableTime(d.completeAt)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
}

func scanJob(scanner rowScanner) (*model.InferenceJob, error) {
	job := &model.InferenceJob{}
	var data jobRowData
	if err := scanner.Scan(data.dest(job)...); err != nil {
		return nil, err
	}
	data.apply(job)
	return job, nil
}

func cloneNullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func cloneNullableTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
