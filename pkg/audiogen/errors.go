package audiogen

import (
	"fmt"
	"time"
)

// SubmissionError reports that no job was created: the submit request failed
// at the transport layer, returned a non-success status, or returned a
// success body without a job identifier.
type SubmissionError struct {
	// StatusCode is the HTTP status of the submit response, 0 when the
	// request never produced one.
	StatusCode int
	Message    string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("audiogen: submit failed (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("audiogen: submit failed: %s", e.Message)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TransportError reports a poll or download request that failed at the
// network or HTTP layer, or whose response could not be decoded.
type TransportError struct {
	// Op identifies the failing operation: "poll" or "download".
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("audiogen: %s failed (status %d): %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("audiogen: %s failed: %s", e.Op, e.Message)
}

func (e *TransportError) Unwrap() error { return e.Err }

// JobError is a failure the server explicitly reported for a job. Code and
// Retriable are only set when the server sent the structured error form.
type JobError struct {
	JobID     string
	Code      string
	Message   string
	Retriable bool
}

func (e *JobError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("audiogen: job %s failed: %s (code=%s)", e.JobID, e.Message, e.Code)
	}
	return fmt.Sprintf("audiogen: job %s failed: %s", e.JobID, e.Message)
}

// TimeoutError reports that the maximum total wait elapsed before the job
// reached a terminal state. The job may still complete server-side; the
// caller decides whether to re-drive it.
type TimeoutError struct {
	JobID      string
	Waited     time.Duration
	LastStatus Status
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("audiogen: job %s timed out after %s (last status %q)", e.JobID, e.Waited, e.LastStatus)
}

// MaterializationError reports a terminal success whose inline payload could
// not be turned into a local artifact. It is never retried internally.
type MaterializationError struct {
	JobID string
	Err   error
}

func (e *MaterializationError) Error() string {
	return fmt.Sprintf("audiogen: job %s completed but artifact could not be materialized: %v", e.JobID, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }
