package audiogen

import "encoding/json"

// RequestTypeAudioRecap is the request-kind discriminator for audio recap
// generation. It is the only kind the backend currently accepts.
const RequestTypeAudioRecap = "audio_recap"

// GenerateRequest is the submission payload for one generation job. The
// incident arrays are parallel: index i of every array describes the same
// emotional incident.
type GenerateRequest struct {
	RequestType    string   `json:"request_type"`
	SentimentLabel []string `json:"sentiment_label" validate:"required,min=1"`
	Intensity      []int    `json:"intensity" validate:"required,min=1"`
	SpeechToText   []string `json:"speech_to_text" validate:"required,min=1"`
	AddedText      []string `json:"added_text"`
	Summary        []string `json:"summary"`
	MusicList      []string `json:"music_list"`
	UserID         string   `json:"user_id" validate:"required"`
}

// Status is the server-reported lifecycle state of a job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusStreaming  Status = "streaming"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further polls will change the status.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StreamingInfo describes progressive segment delivery. SegmentsTotal is nil
// while the server does not yet know the final count.
type StreamingInfo struct {
	PlaylistURL       string `json:"playlist_url"`
	SegmentsCompleted int    `json:"segments_completed"`
	SegmentsTotal     *int   `json:"segments_total"`
}

// InlineResult is the all-at-once delivery payload of a completed job.
type InlineResult struct {
	Base64    string   `json:"base64"`
	MusicList []string `json:"music_list"`
}

// DownloadInfo signals whether a consolidated artifact of a streamed job can
// be fetched through the download endpoint.
type DownloadInfo struct {
	Available bool `json:"available"`
}

// Snapshot is the decoded result of one status poll. Exactly the fields
// implied by Status are set: Streaming for streaming (and for streamed
// completions, alongside Download), Result for inline completions, Err for
// failures. Downstream code switches on Status and never re-inspects the
// raw response shape.
type Snapshot struct {
	JobID     string
	Status    Status
	Streaming *StreamingInfo
	Result    *InlineResult
	Download  *DownloadInfo
	Err       *JobError
}

// submitResponse is the wire form of a successful submission.
type submitResponse struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// statusResponse is the wire form of one poll response. The error field may
// be a plain string or a structured object, so it is deferred to decode time.
type statusResponse struct {
	JobID     string          `json:"job_id"`
	Status    Status          `json:"status"`
	Streaming *StreamingInfo  `json:"streaming,omitempty"`
	Result    *InlineResult   `json:"result,omitempty"`
	Download  *DownloadInfo   `json:"download,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// snapshot converts the wire response into the tagged variant.
func (r *statusResponse) snapshot() *Snapshot {
	snap := &Snapshot{
		JobID:     r.JobID,
		Status:    r.Status,
		Streaming: r.Streaming,
		Result:    r.Result,
		Download:  r.Download,
	}
	if r.Status == StatusFailed {
		snap.Err = parseJobError(r.JobID, r.Error, r.Message)
	}
	return snap
}

// parseJobError decodes the failed-status error payload, which the server
// sends either as a plain string or as { code, message, retriable }. The
// structured message wins over the top-level string when both are present.
// Returns nil when the payload is absent entirely.
func parseJobError(jobID string, raw json.RawMessage, topMessage string) *JobError {
	if len(raw) == 0 {
		if topMessage == "" {
			return nil
		}
		return &JobError{JobID: jobID, Message: topMessage}
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return &JobError{JobID: jobID, Message: s}
	}

	var obj struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		Retriable bool   `json:"retriable"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		msg := obj.Message
		if msg == "" {
			msg = topMessage
		}
		return &JobError{
			JobID:     jobID,
			Code:      obj.Code,
			Message:   msg,
			Retriable: obj.Retriable,
		}
	}

	return &JobError{JobID: jobID, Message: string(raw)}
}
