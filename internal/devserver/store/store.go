// Package store persists the devserver's job records. The devserver backs
// onto Redis when it is available and an in-memory map otherwise; both
// implementations share the same record shape.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/moodtape/audiogen/pkg/audiogen"
)

// ErrNotFound is returned when no job exists under the requested ID.
var ErrNotFound = errors.New("job not found")

// ErrorDetail is the stored form of a job failure. An empty Code means the
// failure is reported on the wire as a plain string.
type ErrorDetail struct {
	Code      string `json:"code,omitempty"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable,omitempty"`
}

// Job is the devserver's record of one generation job.
type Job struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Payload []byte `json:"payload"`

	Status    audiogen.Status         `json:"status"`
	Streaming *audiogen.StreamingInfo `json:"streaming,omitempty"`
	Result    *audiogen.InlineResult  `json:"result,omitempty"`
	Error     *ErrorDetail            `json:"error,omitempty"`

	// ArtifactKey is the storage key of the consolidated artifact of a
	// streamed job; DownloadAvailable gates the download endpoint.
	ArtifactKey       string `json:"artifactKey,omitempty"`
	DownloadAvailable bool   `json:"downloadAvailable"`

	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Store reads and writes job records.
type Store interface {
	Save(ctx context.Context, job *Job) error
	Get(ctx context.Context, jobID string) (*Job, error)
}
