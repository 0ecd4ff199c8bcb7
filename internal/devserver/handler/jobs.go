// Package handler exposes the devserver's HTTP surface: job submission,
// status polling and download issuance.
package handler

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/moodtape/audiogen/internal/devserver/service"
	"github.com/moodtape/audiogen/internal/devserver/store"
	"github.com/moodtape/audiogen/pkg/audiogen"
	"github.com/moodtape/audiogen/pkg/response"
)

type JobHandler struct {
	jobs     *service.JobService
	validate *validator.Validate
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{
		jobs:     jobs,
		validate: validator.New(),
	}
}

type submitPayload struct {
	JobID   string          `json:"job_id"`
	Status  audiogen.Status `json:"status"`
	Message string          `json:"message,omitempty"`
}

type statusPayload struct {
	JobID     string                  `json:"job_id"`
	Status    audiogen.Status         `json:"status"`
	Streaming *audiogen.StreamingInfo `json:"streaming,omitempty"`
	Result    *audiogen.InlineResult  `json:"result,omitempty"`
	Download  *audiogen.DownloadInfo  `json:"download,omitempty"`
	Error     interface{}             `json:"error,omitempty"`
}

type downloadPayload struct {
	JobID       string `json:"job_id"`
	DownloadURL string `json:"download_url"`
	ExpiresIn   int    `json:"expires_in"`
}

// Submit handles POST /job.
func (h *JobHandler) Submit(c *fiber.Ctx) error {
	var req audiogen.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", err.Error())
	}
	if req.RequestType == "" {
		req.RequestType = audiogen.RequestTypeAudioRecap
	}

	if err := h.validate.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", err.Error())
	}

	n := len(req.SentimentLabel)
	if len(req.Intensity) != n || len(req.SpeechToText) != n || len(req.AddedText) != n || len(req.Summary) != n {
		return response.ValidationError(c, "Incident arrays must have equal length", nil)
	}

	job, err := h.jobs.SubmitJob(c.Context(), &req)
	if err != nil {
		log.Printf("[Handler] submit failed: %v", err)
		return response.ServiceError(c, "Failed to submit job")
	}

	return response.Accepted(c, submitPayload{
		JobID:   job.ID,
		Status:  job.Status,
		Message: "Job accepted",
	})
}

// Status handles GET /job/:job_id.
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	userID := c.Query("user_id")

	job, err := h.jobs.GetJob(c.Context(), jobID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		log.Printf("[Handler] status job=%s: %v", jobID, err)
		return response.ServiceError(c, "Failed to load job")
	}

	payload := statusPayload{
		JobID:     job.ID,
		Status:    job.Status,
		Streaming: job.Streaming,
		Result:    job.Result,
	}
	if job.ArtifactKey != "" || job.DownloadAvailable {
		payload.Download = &audiogen.DownloadInfo{Available: job.DownloadAvailable}
	}
	if job.Error != nil {
		if job.Error.Code != "" {
			payload.Error = job.Error
		} else {
			payload.Error = job.Error.Message
		}
	}

	return response.OK(c, payload)
}

// Download handles POST /job/:job_id/download.
func (h *JobHandler) Download(c *fiber.Ctx) error {
	jobID := c.Params("job_id")
	userID := c.Query("user_id")

	url, expiresIn, err := h.jobs.IssueDownload(c.Context(), jobID, userID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return response.NotFound(c, "Job not found")
		case errors.Is(err, service.ErrDownloadNotReady):
			return response.NotReady(c, "Consolidated artifact not available yet")
		default:
			log.Printf("[Handler] download job=%s: %v", jobID, err)
			return response.ServiceError(c, "Failed to issue download URL")
		}
	}

	return response.OK(c, downloadPayload{
		JobID:       jobID,
		DownloadURL: url,
		ExpiresIn:   expiresIn,
	})
}
