package audiogen

import "time"

// DownloadHandle is a time-limited retrieval location for a streamed job's
// consolidated artifact. Every RequestDownload call yields a fresh handle
// with its own validity window, so handles are never cached or reused.
type DownloadHandle struct {
	JobID string `json:"job_id"`
	URL   string `json:"download_url"`

	// ExpiresIn is the validity window in seconds, counted from
	// RequestedAt.
	ExpiresIn int `json:"expires_in"`

	RequestedAt time.Time `json:"-"`
}

// ExpiresAt returns the end of the handle's validity window.
func (h *DownloadHandle) ExpiresAt() time.Time {
	return h.RequestedAt.Add(time.Duration(h.ExpiresIn) * time.Second)
}

// Expired reports whether the handle's validity window has passed.
func (h *DownloadHandle) Expired() bool {
	return time.Now().After(h.ExpiresAt())
}
