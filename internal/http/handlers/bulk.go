package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"descriptly/internal/domain"
)

type bulkGenerateRequest struct {
	ProductIDs []string                 `json:"product_ids" validate:"required,min=1,max=1000,dive,required"`
	Options    domain.GenerationOptions `json:"options" validate:"required"`
}

type bulkJobResponse struct {
	JobID      string               `json:"job_id"`
	Status     domain.JobStatus     `json:"status"`
	Total      int                  `json:"total"`
	Processed  int                  `json:"processed"`
	Successful int                  `json:"successful"`
	Failed     int                  `json:"failed"`
	Progress   int                  `json:"progress"`
	Results    []domain.ItemOutcome `json:"results,omitempty"`
	Error      string               `json:"error,omitempty"`
}

// BulkGenerate accepts a bulk job, persists it queued, and hands the ID to
// the worker queue. The response returns immediately; completion is polled.
func (a *App) BulkGenerate(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	var req bulkGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, r, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if err := a.Validate.Struct(req); err != nil {
		a.error(w, r, http.StatusBadRequest, "validation_error", "invalid request", err.Error())
		return
	}
	if err := req.Options.Normalize(); err != nil {
		a.domainError(w, r, err)
		return
	}

	caps := domain.Capabilities(merchant.Plan)
	if len(req.ProductIDs) > caps.MaxBulkSize {
		a.domainError(w, r, domain.ErrPlanLimit)
		return
	}
	if err := a.gateGeneration(r, merchant, req.Options, len(req.ProductIDs)); err != nil {
		a.domainError(w, r, err)
		return
	}

	job := &domain.BulkJob{
		ID:         uuid.NewString(),
		MerchantID: merchant.ID,
		ProductIDs: req.ProductIDs,
		Options:    req.Options,
		Status:     domain.JobStatusQueued,
		Total:      len(req.ProductIDs),
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Queue.Enqueue(r.Context(), job.ID); err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("enqueue failed")
		_ = a.Jobs.Finish(r.Context(), job.ID, domain.JobStatusFailed, "enqueue failed")
		a.error(w, r, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusOK, map[string]string{"job_id": job.ID})
}

// BulkJobStatus reports the polled state of a job owned by the caller.
func (a *App) BulkJobStatus(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetForMerchant(r.Context(), jobID, merchant.ID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, bulkJobResponse{
		JobID:      job.ID,
		Status:     job.Status,
		Total:      job.Total,
		Processed:  job.Processed,
		Successful: job.Successful,
		Failed:     job.Failed,
		Progress:   job.Progress(),
		Results:    job.Outcomes,
		Error:      job.ErrorMessage,
	})
}

// BulkJobCancel requests cooperative cancellation. The in-flight chunk
// finishes; later chunks are skipped.
func (a *App) BulkJobCancel(w http.ResponseWriter, r *http.Request) {
	merchant, err := a.currentMerchant(r)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	jobID := chi.URLParam(r, "job_id")
	if err := a.Jobs.RequestCancel(r.Context(), jobID, merchant.ID); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"job_id": jobID, "status": "cancel_requested"})
}
