package audiogen

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Scenario: pending → processing → completed with an inline payload.
func TestGenerateInlineDelivery(t *testing.T) {
	srv := newScriptedServer(t, "job-1", []string{
		`{"job_id":"job-1","status":"pending"}`,
		`{"job_id":"job-1","status":"processing"}`,
		`{"job_id":"job-1","status":"completed","result":{"base64":"QUFB","music_list":["rain.mp3"]}}`,
	})

	mem := NewMemoryMaterializer()
	c := NewClient(srv.URL, WithMaterializer(mem))

	var seen []Status
	outcome, err := c.Generate(context.Background(), testRequest(),
		WithBackoff(fastBackoff()),
		WithNotify(func(s *Snapshot) { seen = append(seen, s.Status) }))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if outcome.IsStreaming() {
		t.Fatal("inline delivery resolved as streaming")
	}
	if len(outcome.MusicList) != 1 || outcome.MusicList[0] != "rain.mp3" {
		t.Errorf("MusicList = %v, want [rain.mp3]", outcome.MusicList)
	}

	data, ok := mem.Get(outcome.ArtifactRef)
	if !ok {
		t.Fatalf("artifact ref %q not materialized", outcome.ArtifactRef)
	}
	if string(data) != "AAA" {
		t.Errorf("artifact = %q, want AAA", data)
	}

	if len(seen) != 2 || seen[0] != StatusPending || seen[1] != StatusProcessing {
		t.Errorf("notified statuses = %v, want [pending processing]", seen)
	}

	if got := srv.polls.Load(); got != 3 {
		t.Errorf("polls = %d, want 3", got)
	}
}

// Scenario: completed with an inline payload on the very first poll yields
// an artifact with zero waits — the scheduler is never invoked.
func TestGenerateCompletedOnFirstPollSkipsScheduler(t *testing.T) {
	srv := newScriptedServer(t, "job-2", []string{
		`{"job_id":"job-2","status":"completed","result":{"base64":"QUFB","music_list":[]}}`,
	})

	schedulerCalls := 0
	b := fastBackoff()
	b.rnd = func() float64 {
		schedulerCalls++
		return 0.5
	}

	c := NewClient(srv.URL, WithMaterializer(NewMemoryMaterializer()))
	outcome, err := c.Generate(context.Background(), testRequest(), WithBackoff(b))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if outcome.ArtifactRef == "" {
		t.Error("no artifact ref")
	}
	if schedulerCalls != 0 {
		t.Errorf("scheduler invoked %d times, want 0", schedulerCalls)
	}
	if got := srv.polls.Load(); got != 1 {
		t.Errorf("polls = %d, want 1", got)
	}
}

// Scenario: a streaming snapshot resolves immediately without waiting for
// completion.
func TestGenerateStreamingDelivery(t *testing.T) {
	srv := newScriptedServer(t, "job-3", []string{
		`{"job_id":"job-3","status":"streaming","streaming":{"playlist_url":"P","segments_completed":2,"segments_total":null}}`,
	})

	c := NewClient(srv.URL)
	outcome, err := c.Generate(context.Background(), testRequest(), WithBackoff(fastBackoff()))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !outcome.IsStreaming() {
		t.Fatal("streaming delivery not detected")
	}
	if outcome.Streaming.PlaylistURL != "P" {
		t.Errorf("PlaylistURL = %q, want P", outcome.Streaming.PlaylistURL)
	}
	if outcome.Streaming.DownloadReady() {
		t.Error("download flagged ready before completion")
	}
	if got := srv.polls.Load(); got != 1 {
		t.Errorf("polls = %d, want 1 (no waiting for completion)", got)
	}
}

// Scenario: server reports failure with a plain string reason.
func TestWaitJobFailed(t *testing.T) {
	srv := newScriptedServer(t, "job-4", []string{
		`{"job_id":"job-4","status":"failed","error":"boom"}`,
	})

	c := NewClient(srv.URL)
	_, err := c.Job("job-4", "user-1").Wait(context.Background(), WithBackoff(fastBackoff()))

	var je *JobError
	if !errors.As(err, &je) {
		t.Fatalf("want *JobError, got %T: %v", err, err)
	}
	if je.Message != "boom" {
		t.Errorf("Message = %q, want boom", je.Message)
	}
}

func TestWaitJobFailedWithoutPayloadGetsGenericMessage(t *testing.T) {
	srv := newScriptedServer(t, "job-5", []string{
		`{"job_id":"job-5","status":"failed"}`,
	})

	c := NewClient(srv.URL)
	_, err := c.Job("job-5", "user-1").Wait(context.Background(), WithBackoff(fastBackoff()))

	var je *JobError
	if !errors.As(err, &je) {
		t.Fatalf("want *JobError, got %T: %v", err, err)
	}
	if je.Message == "" {
		t.Error("generic message not substituted")
	}
}

// Scenario: every poll returns processing; once elapsed time exceeds the
// maximum total wait the loop rejects and polls stop.
func TestWaitTimesOut(t *testing.T) {
	srv := newScriptedServer(t, "job-6", []string{
		`{"job_id":"job-6","status":"processing"}`,
	})

	c := NewClient(srv.URL)
	_, err := c.Job("job-6", "user-1").Wait(context.Background(),
		WithBackoff(fastBackoff()),
		WithMaxWait(25*time.Millisecond))

	var toErr *TimeoutError
	if !errors.As(err, &toErr) {
		t.Fatalf("want *TimeoutError, got %T: %v", err, err)
	}
	if toErr.LastStatus != StatusProcessing {
		t.Errorf("LastStatus = %q, want processing", toErr.LastStatus)
	}

	// Poll count is bounded by maxWait / minimum interval.
	polls := srv.polls.Load()
	if polls < 1 {
		t.Fatal("no polls issued")
	}
	if max := int64(25 + 2); polls > max { // 25ms / 1ms minimum + slack
		t.Errorf("polls = %d, want <= %d", polls, max)
	}

	settled := polls
	time.Sleep(20 * time.Millisecond)
	if srv.polls.Load() != settled {
		t.Error("polls continued after timeout")
	}
}

// Streaming segment counts must never regress across successive polls.
func TestWaitClampsRegressingSegmentCounts(t *testing.T) {
	srv := newScriptedServer(t, "job-7", []string{
		`{"job_id":"job-7","status":"streaming","streaming":{"playlist_url":"P","segments_completed":3,"segments_total":null}}`,
		`{"job_id":"job-7","status":"streaming","streaming":{"playlist_url":"P","segments_completed":1,"segments_total":null}}`,
		`{"job_id":"job-7","status":"streaming","streaming":{"playlist_url":"P","segments_completed":5,"segments_total":6}}`,
		`{"job_id":"job-7","status":"completed","streaming":{"playlist_url":"P","segments_completed":6,"segments_total":6},"download":{"available":true}}`,
	})

	c := NewClient(srv.URL)
	var counts []int
	snap, err := c.Job("job-7", "user-1").Wait(context.Background(),
		WithBackoff(fastBackoff()),
		WithNotify(func(s *Snapshot) {
			if s.Streaming != nil {
				counts = append(counts, s.Streaming.SegmentsCompleted)
			}
		}))
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}

	for i := 1; i < len(counts); i++ {
		if counts[i] < counts[i-1] {
			t.Fatalf("segment counts regressed: %v", counts)
		}
	}
	if len(counts) != 3 || counts[0] != 3 || counts[1] != 3 || counts[2] != 5 {
		t.Errorf("counts = %v, want [3 3 5]", counts)
	}
	if snap.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", snap.Status)
	}
}

// Scenario: WaitForCompletion polls until completed with the download flag
// set; DownloadURL then issues exactly one request.
func TestStreamHandleWaitForCompletionAndDownload(t *testing.T) {
	srv := newScriptedServer(t, "job-8", []string{
		`{"job_id":"job-8","status":"streaming","streaming":{"playlist_url":"P","segments_completed":1,"segments_total":4}}`,
		`{"job_id":"job-8","status":"streaming","streaming":{"playlist_url":"P","segments_completed":3,"segments_total":4}}`,
		`{"job_id":"job-8","status":"completed","streaming":{"playlist_url":"P","segments_completed":4,"segments_total":4},"download":{"available":true}}`,
	})

	c := NewClient(srv.URL)
	outcome, err := c.Generate(context.Background(), testRequest(), WithBackoff(fastBackoff()))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	handle := outcome.Streaming
	if handle == nil {
		t.Fatal("no stream handle")
	}

	snap, err := handle.WaitForCompletion(context.Background(), WithBackoff(fastBackoff()))
	if err != nil {
		t.Fatalf("WaitForCompletion: %v", err)
	}
	if snap.Download == nil || !snap.Download.Available {
		t.Fatal("final snapshot without available download")
	}
	if !handle.DownloadReady() {
		t.Error("handle not marked download-ready")
	}

	url, err := handle.DownloadURL(context.Background())
	if err != nil {
		t.Fatalf("DownloadURL: %v", err)
	}
	if url != "https://cdn.example.com/job-8.mp3" {
		t.Errorf("url = %q", url)
	}
	if got := srv.downloads.Load(); got != 1 {
		t.Errorf("download requests = %d, want exactly 1", got)
	}

	// Handles are time-limited and never cached: a second call issues a
	// second request.
	if _, err := handle.DownloadURL(context.Background()); err != nil {
		t.Fatalf("second DownloadURL: %v", err)
	}
	if got := srv.downloads.Load(); got != 2 {
		t.Errorf("download requests = %d, want 2", got)
	}
}

func TestWaitHonorsContextCancellation(t *testing.T) {
	srv := newScriptedServer(t, "job-9", []string{
		`{"job_id":"job-9","status":"processing"}`,
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL)

	b := &Backoff{
		Initial:    time.Hour, // the cancel must win the select
		Multiplier: 1.5,
		Ceiling:    time.Hour,
		Jitter:     0,
		rnd:        func() float64 { return 0.5 },
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := c.Job("job-9", "user-1").Wait(ctx, WithBackoff(b))
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("want context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}
