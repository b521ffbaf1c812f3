package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP API server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeTrigger runs the in-process periodic worker trigger.
	ServiceModeTrigger ServiceMode = "trigger"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeTrigger,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if strings.TrimSpace(servicesStr) == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeTrigger, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, trigger, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

const (
	maxWorkerBatchSize  = 50
	maxWorkerRetries    = 10
	minJobLease         = 5 * time.Second
	minInferenceTimeout = time.Second
)

// WorkerConfig controls how a single worker invocation claims and processes jobs.
type WorkerConfig struct {
	// BatchSize is the maximum number of jobs one invocation claims and processes.
	BatchSize int `env:"BATCH_SIZE" envDefault:"1"`

	// Concurrency bounds in-flight invocations started by the in-process trigger
	// and the number of jobs of a batch processed in parallel.
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`

	// JobLease is how long a claimed job may stay in processing before it is
	// considered stuck and becomes eligible for re-claim.
	JobLease time.Duration `env:"JOB_LEASE" envDefault:"5m"`

	// InferenceTimeout bounds a single inference engine call.
	InferenceTimeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"30s"`

	// MaxRetries is the number of times a timed-out or lease-expired job is re-queued before failing.
	MaxRetries int `env:"MAX_RETRIES" envDefault:"0"`

	// RunLock serialises invocations per slot across replicas using Redis.
	RunLock    bool          `env:"RUN_LOCK"     envDefault:"false"`
	RunLockTTL time.Duration `env:"RUN_LOCK_TTL" envDefault:"2m"`
}

// Sanitize applies guardrails to worker configuration values.
func (w *WorkerConfig) Sanitize() {
	if w.BatchSize < 1 {
		w.BatchSize = 1
	}
	if w.BatchSize > maxWorkerBatchSize {
		w.BatchSize = maxWorkerBatchSize
	}
	if w.Concurrency < 1 {
		w.Concurrency = 1
	}
	if w.JobLease < minJobLease {
		w.JobLease = minJobLease
	}
	if w.InferenceTimeout < minInferenceTimeout {
		w.InferenceTimeout = minInferenceTimeout
	}
	// A lease shorter than the inference budget would let another worker re-claim a healthy job.
	if w.JobLease <= w.InferenceTimeout {
		w.JobLease = w.InferenceTimeout + minJobLease
	}
	if w.MaxRetries < 0 {
		w.MaxRetries = 0
	}
	if w.MaxRetries > maxWorkerRetries {
		w.MaxRetries = maxWorkerRetries
	}
	if w.RunLockTTL < w.InferenceTimeout {
		w.RunLockTTL = 2 * w.InferenceTimeout
	}
}

// TriggerConfig controls the in-process invocation trigger.
type TriggerConfig struct {
	// Interval between worker invocations.
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`

	// RunOnStart invokes the worker immediately instead of waiting one interval.
	RunOnStart bool `env:"RUN_ON_START" envDefault:"true"`
}

// Sanitize applies guardrails to trigger configuration values.
func (t *TriggerConfig) Sanitize() {
	if t.Interval < time.Second {
		t.Interval = time.Second
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Interval is the reaper tick interval.
	Interval time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`

	// QueuedMaxAge is the maximum age for queued jobs before they are marked as failed.
	QueuedMaxAge time.Duration `env:"REAPER_QUEUED_MAX_AGE" envDefault:"24h"`

	// CompletedMaxAge is the maximum age for completed jobs before deletion.
	CompletedMaxAge time.Duration `env:"REAPER_COMPLETED_MAX_AGE" envDefault:"168h"` // 7 days

	// FailedMaxAge is the maximum age for failed jobs before deletion.
	FailedMaxAge time.Duration `env:"REAPER_FAILED_MAX_AGE" envDefault:"168h"` // 7 days

	// BatchSize is the maximum number of rows to process per operation.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if r.Interval < 1*time.Minute {
		r.Interval = 1 * time.Minute
	}
	if r.QueuedMaxAge < 5*time.Minute {
		r.QueuedMaxAge = 5 * time.Minute
	}
	if r.CompletedMaxAge < 1*time.Hour {
		r.CompletedMaxAge = 1 * time.Hour
	}
	if r.FailedMaxAge < 1*time.Hour {
		r.FailedMaxAge = 1 * time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
