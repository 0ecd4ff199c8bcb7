// Package service implements the devserver's job lifecycle: accepting
// submissions, recording state transitions driven by the generation worker,
// and issuing time-limited download URLs for consolidated artifacts.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/moodtape/audiogen/internal/devserver/storage"
	"github.com/moodtape/audiogen/internal/devserver/store"
	"github.com/moodtape/audiogen/pkg/audiogen"
)

// ErrDownloadNotReady is returned when a download is requested before the
// consolidated artifact exists.
var ErrDownloadNotReady = errors.New("download not available yet")

// DefaultDownloadTTL is how long issued download URLs stay valid.
const DefaultDownloadTTL = time.Hour

// Enqueuer hands a submitted job to the generation worker. Backed by asynq
// when Redis is available; tests and standalone runs use an inline
// goroutine instead.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobID string) error
}

// JobService owns job records and their state transitions.
type JobService struct {
	store       store.Store
	enqueuer    Enqueuer
	storage     storage.Storage
	downloadTTL time.Duration
}

func NewJobService(st store.Store, enq Enqueuer, storage storage.Storage) *JobService {
	return &JobService{
		store:       st,
		enqueuer:    enq,
		storage:     storage,
		downloadTTL: DefaultDownloadTTL,
	}
}

// SubmitJob registers a new job in pending state and hands it to the
// worker.
func (s *JobService) SubmitJob(ctx context.Context, req *audiogen.GenerateRequest) (*store.Job, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	job := &store.Job{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Payload:   payload,
		Status:    audiogen.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, err
	}

	if err := s.enqueuer.Enqueue(ctx, job.ID); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	log.Printf("[Jobs] submitted job=%s user=%s incidents=%d", job.ID, job.UserID, len(req.SpeechToText))
	return job, nil
}

// GetJob fetches a job, scoped to its owner. A job belonging to a
// different user is indistinguishable from a missing one.
func (s *JobService) GetJob(ctx context.Context, jobID, userID string) (*store.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if userID != "" && job.UserID != userID {
		return nil, store.ErrNotFound
	}
	return job, nil
}

// IssueDownload mints a fresh time-limited URL for the consolidated
// artifact. URLs are never cached; each call produces a new one.
func (s *JobService) IssueDownload(ctx context.Context, jobID, userID string) (string, int, error) {
	job, err := s.GetJob(ctx, jobID, userID)
	if err != nil {
		return "", 0, err
	}
	if !job.DownloadAvailable || job.ArtifactKey == "" {
		return "", 0, ErrDownloadNotReady
	}

	url, err := s.storage.GetSignedURL(ctx, job.ArtifactKey, s.downloadTTL)
	if err != nil {
		return "", 0, fmt.Errorf("sign download url: %w", err)
	}
	return url, int(s.downloadTTL.Seconds()), nil
}

// mutate applies fn to the stored job record and persists the result.
func (s *JobService) mutate(ctx context.Context, jobID string, fn func(*store.Job)) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	fn(job)
	return s.store.Save(ctx, job)
}

// MarkProcessing moves a pending job into processing.
func (s *JobService) MarkProcessing(ctx context.Context, jobID string) error {
	return s.mutate(ctx, jobID, func(j *store.Job) {
		j.Status = audiogen.StatusProcessing
	})
}

// UpdateStreaming records streaming progress as segments are published.
func (s *JobService) UpdateStreaming(ctx context.Context, jobID string, info *audiogen.StreamingInfo) error {
	return s.mutate(ctx, jobID, func(j *store.Job) {
		j.Status = audiogen.StatusStreaming
		j.Streaming = info
	})
}

// CompleteInline finishes a job whose artifact is small enough to return
// in the status payload itself.
func (s *JobService) CompleteInline(ctx context.Context, jobID, base64Audio string, musicList []string) error {
	now := time.Now().UTC()
	return s.mutate(ctx, jobID, func(j *store.Job) {
		j.Status = audiogen.StatusCompleted
		j.Result = &audiogen.InlineResult{Base64: base64Audio, MusicList: musicList}
		j.CompletedAt = &now
	})
}

// CompleteStreaming finishes a streamed job once the consolidated artifact
// has been uploaded. The final streaming manifest stays on the record so
// late pollers still see it.
func (s *JobService) CompleteStreaming(ctx context.Context, jobID, artifactKey string) error {
	now := time.Now().UTC()
	return s.mutate(ctx, jobID, func(j *store.Job) {
		j.Status = audiogen.StatusCompleted
		j.ArtifactKey = artifactKey
		j.DownloadAvailable = true
		j.CompletedAt = &now
	})
}

// FailJob records a terminal failure. An empty code means the failure is
// reported on the wire as a plain string.
func (s *JobService) FailJob(ctx context.Context, jobID, code, message string, retriable bool) error {
	now := time.Now().UTC()
	return s.mutate(ctx, jobID, func(j *store.Job) {
		j.Status = audiogen.StatusFailed
		j.Error = &store.ErrorDetail{Code: code, Message: message, Retriable: retriable}
		j.CompletedAt = &now
	})
}
