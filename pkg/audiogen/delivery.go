package audiogen

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DefaultArtifactPath is the well-known location inline recaps are written
// to. Each materialization overwrites the previous artifact.
var DefaultArtifactPath = filepath.Join(os.TempDir(), "moodtape", "recap.mp3")

// Materializer turns an inline audio payload into a caller-addressable
// local artifact. The capability is chosen once at startup: hosts with a
// filesystem use FileMaterializer, hosts without one use
// MemoryMaterializer.
type Materializer interface {
	Materialize(data []byte) (ref string, err error)
}

// FileMaterializer writes the artifact to a fixed path, overwriting any
// prior artifact there. The returned ref is the path itself.
type FileMaterializer struct {
	Path string
}

// NewFileMaterializer creates a file-backed materializer. An empty path
// selects DefaultArtifactPath.
func NewFileMaterializer(path string) *FileMaterializer {
	if path == "" {
		path = DefaultArtifactPath
	}
	return &FileMaterializer{Path: path}
}

func (m *FileMaterializer) Materialize(data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	if err := os.WriteFile(m.Path, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return m.Path, nil
}

// MemoryMaterializer keeps artifacts in memory behind short-lived mem://
// references. Refs stay valid until released or the process exits.
type MemoryMaterializer struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryMaterializer() *MemoryMaterializer {
	return &MemoryMaterializer{blobs: make(map[string][]byte)}
}

func (m *MemoryMaterializer) Materialize(data []byte) (string, error) {
	ref := "mem://recap/" + uuid.New().String()

	m.mu.Lock()
	m.blobs[ref] = data
	m.mu.Unlock()

	return ref, nil
}

// Get returns the blob behind a ref.
func (m *MemoryMaterializer) Get(ref string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[ref]
	return data, ok
}

// Release frees the blob behind a ref.
func (m *MemoryMaterializer) Release(ref string) {
	m.mu.Lock()
	delete(m.blobs, ref)
	m.mu.Unlock()
}

// Outcome is the resolved result of a successfully completed job: either a
// materialized local artifact (inline delivery) or a streaming handle
// (progressive delivery), never both.
type Outcome struct {
	JobID string

	// ArtifactRef and MusicList are set for inline delivery.
	ArtifactRef string
	MusicList   []string

	// Streaming is set for progressive delivery.
	Streaming *StreamHandle
}

// IsStreaming reports whether the job delivered progressively.
func (o *Outcome) IsStreaming() bool { return o.Streaming != nil }

// StreamHandle exposes a streamed job's manifest and its consolidated
// download once available.
type StreamHandle struct {
	JobID       string
	PlaylistURL string

	downloadReady bool
	job           *Job
}

// DownloadReady reports whether the last observed snapshot flagged the
// consolidated artifact as downloadable.
func (h *StreamHandle) DownloadReady() bool { return h.downloadReady }

// WaitForCompletion restarts the poll loop with fresh backoff state until
// the job reports completed with the download flag set, returning that
// final snapshot. Progress snapshots go to the notify option as usual.
func (h *StreamHandle) WaitForCompletion(ctx context.Context, opts ...WaitOption) (*Snapshot, error) {
	snap, err := h.job.wait(ctx, func(s *Snapshot) bool {
		return s.Status == StatusCompleted && s.Download != nil && s.Download.Available
	}, opts...)
	if err != nil {
		return nil, err
	}

	h.downloadReady = true
	if snap.Streaming != nil && snap.Streaming.PlaylistURL != "" {
		h.PlaylistURL = snap.Streaming.PlaylistURL
	}

	return snap, nil
}

// DownloadURL fetches a fresh time-limited URL for the consolidated
// artifact. Valid only after the job signalled download availability; the
// precondition is not enforced here.
func (h *StreamHandle) DownloadURL(ctx context.Context) (string, error) {
	handle, err := h.job.client.RequestDownload(ctx, h.JobID)
	if err != nil {
		return "", err
	}
	return handle.URL, nil
}

// Resolve turns a successful snapshot into an Outcome, detecting the
// delivery mode from the decoded variant: an inline result is materialized
// through the client's configured Materializer, a streaming reference
// (whether mid-stream or from a streamed completion) becomes a
// StreamHandle. A write or decode failure during materialization is a
// *MaterializationError and is not retried.
func (c *Client) Resolve(job *Job, snap *Snapshot) (*Outcome, error) {
	if snap.Status != StatusCompleted && snap.Status != StatusStreaming {
		return nil, fmt.Errorf("audiogen: cannot resolve snapshot with status %q", snap.Status)
	}

	if snap.Status == StatusCompleted && snap.Result != nil {
		data, err := base64.StdEncoding.DecodeString(snap.Result.Base64)
		if err != nil {
			return nil, &MaterializationError{JobID: job.ID, Err: fmt.Errorf("decode payload: %w", err)}
		}

		ref, err := c.materializer.Materialize(data)
		if err != nil {
			return nil, &MaterializationError{JobID: job.ID, Err: err}
		}

		return &Outcome{
			JobID:       job.ID,
			ArtifactRef: ref,
			MusicList:   snap.Result.MusicList,
		}, nil
	}

	if snap.Streaming != nil {
		handle := &StreamHandle{
			JobID:       job.ID,
			PlaylistURL: snap.Streaming.PlaylistURL,
			job:         job,
		}
		if snap.Download != nil {
			handle.downloadReady = snap.Download.Available
		}
		return &Outcome{JobID: job.ID, Streaming: handle}, nil
	}

	return nil, &TransportError{Op: "poll", Message: "completed status carried neither result nor streaming"}
}
