// Package worker runs the simulated generation pipeline. A job moves
// through pending → processing and then either returns a small inline
// artifact or publishes segments one by one (streaming) before uploading a
// consolidated artifact.
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/moodtape/audiogen/internal/devserver/service"
	"github.com/moodtape/audiogen/internal/devserver/storage"
	ws "github.com/moodtape/audiogen/internal/websocket"
	"github.com/moodtape/audiogen/pkg/audiogen"
)

const (
	// DefaultStepDelay paces simulated pipeline stages.
	DefaultStepDelay = 500 * time.Millisecond

	// streamThreshold is the incident count at which delivery switches
	// from inline to progressive streaming.
	streamThreshold = 3
)

// GenerateWorker processes generation tasks.
type GenerateWorker struct {
	jobs      *service.JobService
	storage   storage.Storage
	hub       *ws.Hub // may be nil
	stepDelay time.Duration
}

func NewGenerateWorker(jobs *service.JobService, st storage.Storage, hub *ws.Hub, stepDelay time.Duration) *GenerateWorker {
	if stepDelay <= 0 {
		stepDelay = DefaultStepDelay
	}
	return &GenerateWorker{
		jobs:      jobs,
		storage:   st,
		hub:       hub,
		stepDelay: stepDelay,
	}
}

// ProcessTask implements asynq.Handler.
func (w *GenerateWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	jobID, err := service.JobIDFromTask(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return w.Process(ctx, jobID)
}

// Process drives one job through the simulated pipeline.
func (w *GenerateWorker) Process(ctx context.Context, jobID string) error {
	job, err := w.jobs.GetJob(ctx, jobID, "")
	if err != nil {
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	req, err := decodeRequest(job.Payload)
	if err != nil {
		return fmt.Errorf("decode job %s payload: %v: %w", jobID, err, asynq.SkipRetry)
	}

	// Failure injection: any incident whose summary mentions "fail" makes
	// the job end in a terminal failure instead of an artifact.
	if reason, injected := failureRequested(req); injected {
		log.Printf("[Worker] job=%s failing on request: %s", jobID, reason)
		if err := w.jobs.FailJob(ctx, jobID, "GENERATION_FAILED", reason, false); err != nil {
			return err
		}
		w.broadcastError(jobID, "GENERATION_FAILED", reason)
		return nil
	}

	if err := w.jobs.MarkProcessing(ctx, jobID); err != nil {
		return err
	}
	w.broadcastStatus(jobID, audiogen.StatusProcessing, nil)

	if err := w.pause(ctx); err != nil {
		return err
	}

	if len(req.SpeechToText) >= streamThreshold {
		return w.streamJob(ctx, jobID, req)
	}
	return w.inlineJob(ctx, jobID, req)
}

// inlineJob finishes a short recap by embedding the artifact in the status
// payload.
func (w *GenerateWorker) inlineJob(ctx context.Context, jobID string, req *audiogen.GenerateRequest) error {
	audio := synthesizeRecap(jobID, req)
	encoded := base64.StdEncoding.EncodeToString(audio)

	if err := w.jobs.CompleteInline(ctx, jobID, encoded, req.MusicList); err != nil {
		return err
	}
	log.Printf("[Worker] job=%s completed inline (%d bytes)", jobID, len(audio))
	w.broadcastComplete(jobID, map[string]interface{}{"delivery": "inline", "bytes": len(audio)})
	return nil
}

// streamJob publishes one segment per incident, updating the playlist and
// the job's streaming progress as it goes, then uploads the consolidated
// artifact and marks the download available.
func (w *GenerateWorker) streamJob(ctx context.Context, jobID string, req *audiogen.GenerateRequest) error {
	total := len(req.SpeechToText)
	playlistKey := fmt.Sprintf("recaps/%s/playlist.m3u8", jobID)
	playlistURL := w.storage.GetPublicURL(playlistKey)

	var segmentURLs []string
	for i := 1; i <= total; i++ {
		if err := w.pause(ctx); err != nil {
			return err
		}

		segmentKey := fmt.Sprintf("recaps/%s/segment-%03d.mp3", jobID, i)
		segURL, err := w.storage.Upload(ctx, segmentKey, bytes.NewReader(synthesizeSegment(jobID, req, i)), "audio/mpeg")
		if err != nil {
			return fmt.Errorf("upload segment %d: %w", i, err)
		}
		segmentURLs = append(segmentURLs, segURL)

		playlist := renderPlaylist(segmentURLs, i == total)
		if _, err := w.storage.Upload(ctx, playlistKey, strings.NewReader(playlist), "application/vnd.apple.mpegurl"); err != nil {
			return fmt.Errorf("upload playlist: %w", err)
		}

		totalCopy := total
		info := &audiogen.StreamingInfo{
			PlaylistURL:       playlistURL,
			SegmentsCompleted: i,
			SegmentsTotal:     &totalCopy,
		}
		if err := w.jobs.UpdateStreaming(ctx, jobID, info); err != nil {
			return err
		}
		log.Printf("[Worker] job=%s segment %d/%d published", jobID, i, total)
		w.broadcastStatus(jobID, audiogen.StatusStreaming, info)
	}

	artifactKey := fmt.Sprintf("recaps/%s/recap.mp3", jobID)
	artifactURL, err := w.storage.Upload(ctx, artifactKey, bytes.NewReader(synthesizeRecap(jobID, req)), "audio/mpeg")
	if err != nil {
		return fmt.Errorf("upload consolidated artifact: %w", err)
	}

	if err := w.jobs.CompleteStreaming(ctx, jobID, artifactKey); err != nil {
		return err
	}
	log.Printf("[Worker] job=%s completed streaming (%d segments)", jobID, total)
	w.broadcastComplete(jobID, map[string]interface{}{
		"delivery":     "streaming",
		"playlist_url": playlistURL,
		"artifact_url": artifactURL,
	})
	return nil
}

func (w *GenerateWorker) pause(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(w.stepDelay):
		return nil
	}
}

func (w *GenerateWorker) broadcastStatus(jobID string, status audiogen.Status, info *audiogen.StreamingInfo) {
	if w.hub != nil {
		w.hub.BroadcastStatus(jobID, status, info)
	}
}

func (w *GenerateWorker) broadcastComplete(jobID string, result interface{}) {
	if w.hub != nil {
		w.hub.BroadcastComplete(jobID, result)
	}
}

func (w *GenerateWorker) broadcastError(jobID, code, message string) {
	if w.hub != nil {
		w.hub.BroadcastError(jobID, code, message, false)
	}
}
