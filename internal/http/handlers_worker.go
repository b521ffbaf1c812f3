package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/target/inferq/internal/domain/model"
)

// WorkerRunner performs one worker invocation.
type WorkerRunner interface {
	Run(ctx context.Context) (model.WorkerRunResult, error)
}

// WorkerHandlers serves the worker invocation endpoint.
type WorkerHandlers struct {
	Svc    WorkerRunner
	Logger *slog.Logger
}

const noJobsMessage = "No jobs to process"

type workerResponse struct {
	Success    bool               `json:"success"`
	JobID      string             `json:"job_id"`
	ResponseID string             `json:"response_id,omitempty"`
	Status     model.JobStatus    `json:"status"`
	Error      string             `json:"error,omitempty"`
	Outcomes   []model.JobOutcome `json:"outcomes,omitempty"`
}

// Run handles POST /api/worker/run. A job that failed is still a handled
// invocation and answers 200 with success=false.
func (h *WorkerHandlers) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Run(r.Context())
	if err != nil {
		WriteServiceError(w, r, h.Logger, err)
		return
	}
	if res.Empty() {
		WriteJSON(w, http.StatusOK, map[string]string{"message": noJobsMessage})
		return
	}

	first := res.Outcomes[0]
	resp := workerResponse{
		Success:    first.Status == model.JobStatusCompleted,
		JobID:      first.JobID,
		ResponseID: first.ResponseID,
		Status:     first.Status,
		Error:      first.Error,
	}
	if len(res.Outcomes) > 1 {
		resp.Outcomes = res.Outcomes
	}
	WriteJSON(w, http.StatusOK, resp)
}
