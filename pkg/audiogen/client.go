package audiogen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultTimeout bounds a single submit/poll/download request. The overall
// job wait is governed separately by the poll loop's max wait.
const DefaultTimeout = 30 * time.Second

// Client talks to the audio-generation job endpoint. It keeps no state
// between calls beyond its configuration; one Client may drive any number
// of jobs concurrently.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	validate     *validator.Validate
	materializer Materializer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaterializer sets the local materialization capability used for
// inline delivery. Defaults to a FileMaterializer writing the well-known
// recap path.
func WithMaterializer(m Materializer) Option {
	return func(c *Client) { c.materializer = m }
}

// NewClient creates a client for the given base address. The base address
// is always passed explicitly; configuration defaults belong to the
// application boundary, not here.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		validate:   validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.materializer == nil {
		c.materializer = NewFileMaterializer("")
	}
	return c
}

// Submit sends the generation request and returns the server-assigned job
// identifier. Any failure, including a success response without a job_id,
// is a *SubmissionError.
func (c *Client) Submit(ctx context.Context, req *GenerateRequest) (string, error) {
	r := *req
	if r.RequestType == "" {
		r.RequestType = RequestTypeAudioRecap
	}

	if err := c.validate.Struct(&r); err != nil {
		return "", &SubmissionError{Message: "invalid request: " + err.Error(), Err: err}
	}
	n := len(r.SentimentLabel)
	if len(r.Intensity) != n || len(r.SpeechToText) != n || len(r.AddedText) != n || len(r.Summary) != n {
		return "", &SubmissionError{Message: "incident arrays must have equal length"}
	}

	var resp submitResponse
	if err := c.doJSON(ctx, http.MethodPost, "/job", "submit", &r, &resp); err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return "", &SubmissionError{StatusCode: te.StatusCode, Message: te.Message, Err: te.Err}
		}
		return "", &SubmissionError{Message: err.Error(), Err: err}
	}

	if resp.JobID == "" {
		return "", &SubmissionError{StatusCode: http.StatusOK, Message: "response carried no job_id"}
	}

	return resp.JobID, nil
}

// Poll fetches the current status of a job. Transport failures and
// non-success HTTP statuses are a *TransportError; otherwise the response
// is decoded into the tagged Snapshot variant.
func (c *Client) Poll(ctx context.Context, jobID, userID string) (*Snapshot, error) {
	path := "/job/" + url.PathEscape(jobID) + "?user_id=" + url.QueryEscape(userID)

	var resp statusResponse
	if err := c.doJSON(ctx, http.MethodGet, path, "poll", nil, &resp); err != nil {
		return nil, err
	}

	return resp.snapshot(), nil
}

// RequestDownload asks for a fresh time-limited retrieval location for a
// streamed job's consolidated artifact. Handles are never cached: every
// call performs a new request and returns a new validity window.
//
// Only meaningful after the job has signalled download availability; the
// server rejects earlier requests.
func (c *Client) RequestDownload(ctx context.Context, jobID string) (*DownloadHandle, error) {
	path := "/job/" + url.PathEscape(jobID) + "/download"

	var handle DownloadHandle
	if err := c.doJSON(ctx, http.MethodPost, path, "download", nil, &handle); err != nil {
		return nil, err
	}
	handle.RequestedAt = time.Now()

	return &handle, nil
}

// Generate submits a job and drives it to a resolved outcome in one call.
// It returns as soon as the result is usable: on inline delivery that is
// the completed snapshot, on progressive delivery the first streaming
// snapshot — playback can start from the playlist before the job finishes,
// and StreamHandle.WaitForCompletion picks the loop back up.
func (c *Client) Generate(ctx context.Context, req *GenerateRequest, opts ...WaitOption) (*Outcome, error) {
	jobID, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}

	job := c.Job(jobID, req.UserID)
	snap, err := job.wait(ctx, func(s *Snapshot) bool {
		return s.Status == StatusCompleted || s.Status == StatusStreaming
	}, opts...)
	if err != nil {
		return nil, err
	}

	return c.Resolve(job, snap)
}

// Job returns a handle to an already-submitted job. The protocol is safely
// re-driveable: a new handle with fresh backoff state can poll a job whose
// original driver was torn down.
func (c *Client) Job(jobID, userID string) *Job {
	return &Job{ID: jobID, UserID: userID, client: c}
}

// doJSON performs one JSON request/response round trip. Non-2xx statuses
// and undecodable bodies come back as *TransportError with the HTTP status
// embedded.
func (c *Client) doJSON(ctx context.Context, method, path, op string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Message: fmt.Sprintf("marshal request: %v", err), Err: err}
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return &TransportError{Op: op, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Printf("[AudioGen] → %s %s", method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[AudioGen] ✗ %s %s — request failed: %v", method, req.URL.String(), err)
		return &TransportError{Op: op, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}

	log.Printf("[AudioGen] ← %d %s %s", resp.StatusCode, method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &TransportError{Op: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
		}
	}

	return nil
}
