package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/moodtape/audiogen/internal/devserver/storage"
	"github.com/moodtape/audiogen/internal/devserver/store"
	"github.com/moodtape/audiogen/pkg/audiogen"
)

type recordingEnqueuer struct {
	jobIDs []string
}

func (e *recordingEnqueuer) Enqueue(_ context.Context, jobID string) error {
	e.jobIDs = append(e.jobIDs, jobID)
	return nil
}

func newTestService(t *testing.T) (*JobService, *recordingEnqueuer, *storage.MockStorage) {
	t.Helper()
	enq := &recordingEnqueuer{}
	mock := storage.NewMockStorage("https://mock.test")
	return NewJobService(store.NewMemoryStore(), enq, mock), enq, mock
}

func testRequest() *audiogen.GenerateRequest {
	return &audiogen.GenerateRequest{
		RequestType:    audiogen.RequestTypeAudioRecap,
		SentimentLabel: []string{"joy"},
		Intensity:      []int{5},
		SpeechToText:   []string{"quiet day"},
		AddedText:      []string{""},
		Summary:        []string{"nothing much happened"},
		UserID:         "user-1",
	}
}

func TestSubmitJobSavesPendingAndEnqueues(t *testing.T) {
	svc, enq, _ := newTestService(t)

	job, err := svc.SubmitJob(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("SubmitJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("no job ID assigned")
	}
	if job.Status != audiogen.StatusPending {
		t.Errorf("status = %q, want pending", job.Status)
	}
	if len(enq.jobIDs) != 1 || enq.jobIDs[0] != job.ID {
		t.Errorf("enqueued = %v, want [%s]", enq.jobIDs, job.ID)
	}

	stored, err := svc.GetJob(context.Background(), job.ID, "user-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if len(stored.Payload) == 0 {
		t.Error("request payload not persisted")
	}
}

func TestGetJobScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	job, _ := svc.SubmitJob(context.Background(), testRequest())

	if _, err := svc.GetJob(context.Background(), job.ID, "someone-else"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound for foreign user, got %v", err)
	}
}

func TestIssueDownloadGating(t *testing.T) {
	svc, _, mock := newTestService(t)
	ctx := context.Background()
	job, _ := svc.SubmitJob(ctx, testRequest())

	if _, _, err := svc.IssueDownload(ctx, job.ID, "user-1"); !errors.Is(err, ErrDownloadNotReady) {
		t.Fatalf("want ErrDownloadNotReady before completion, got %v", err)
	}

	key := "recaps/" + job.ID + "/recap.mp3"
	if _, err := mock.Upload(ctx, key, strings.NewReader("bytes"), "audio/mpeg"); err != nil {
		t.Fatal(err)
	}
	if err := svc.CompleteStreaming(ctx, job.ID, key); err != nil {
		t.Fatalf("CompleteStreaming: %v", err)
	}

	url, expiresIn, err := svc.IssueDownload(ctx, job.ID, "user-1")
	if err != nil {
		t.Fatalf("IssueDownload: %v", err)
	}
	if !strings.Contains(url, key) {
		t.Errorf("url = %q, want key %q inside", url, key)
	}
	if expiresIn != int(DefaultDownloadTTL.Seconds()) {
		t.Errorf("expiresIn = %d", expiresIn)
	}
}

func TestFailJobRecordsErrorDetail(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	job, _ := svc.SubmitJob(ctx, testRequest())

	if err := svc.FailJob(ctx, job.ID, "GENERATION_FAILED", "model rejected input", false); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	stored, _ := svc.GetJob(ctx, job.ID, "user-1")
	if stored.Status != audiogen.StatusFailed {
		t.Errorf("status = %q, want failed", stored.Status)
	}
	if stored.Error == nil || stored.Error.Code != "GENERATION_FAILED" {
		t.Errorf("error detail = %+v", stored.Error)
	}
	if stored.CompletedAt == nil {
		t.Error("terminal job without completion time")
	}
}
