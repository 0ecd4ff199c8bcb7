package audiogen

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFileMaterializerWritesAndOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recaps", "recap.mp3")
	m := NewFileMaterializer(path)

	ref, err := m.Materialize([]byte("first"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if ref != path {
		t.Errorf("ref = %q, want %q", ref, path)
	}

	if _, err := m.Materialize([]byte("second")); err != nil {
		t.Fatalf("second Materialize: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("artifact = %q, want overwritten content", data)
	}
}

func TestFileMaterializerDefaultPath(t *testing.T) {
	m := NewFileMaterializer("")
	if m.Path != DefaultArtifactPath {
		t.Errorf("Path = %q, want %q", m.Path, DefaultArtifactPath)
	}
}

func TestMemoryMaterializerGetAndRelease(t *testing.T) {
	m := NewMemoryMaterializer()

	ref, err := m.Materialize([]byte("blob"))
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}

	data, ok := m.Get(ref)
	if !ok || string(data) != "blob" {
		t.Fatalf("Get(%q) = %q, %v", ref, data, ok)
	}

	m.Release(ref)
	if _, ok := m.Get(ref); ok {
		t.Error("blob still reachable after Release")
	}

	// Refs are unique per materialization.
	ref2, _ := m.Materialize([]byte("blob"))
	if ref2 == ref {
		t.Error("refs not unique")
	}
}

func TestResolveMaterializationFailure(t *testing.T) {
	// Parent of the artifact path is a regular file, so the write fails.
	base := t.TempDir()
	blocker := filepath.Join(base, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClient("http://unused.invalid",
		WithMaterializer(NewFileMaterializer(filepath.Join(blocker, "sub", "recap.mp3"))))
	job := c.Job("job-1", "user-1")

	snap := &Snapshot{
		JobID:  "job-1",
		Status: StatusCompleted,
		Result: &InlineResult{Base64: "QUFB"},
	}

	_, err := c.Resolve(job, snap)
	var me *MaterializationError
	if !errors.As(err, &me) {
		t.Fatalf("want *MaterializationError, got %T: %v", err, err)
	}
}

func TestResolveRejectsBadBase64(t *testing.T) {
	c := NewClient("http://unused.invalid", WithMaterializer(NewMemoryMaterializer()))
	job := c.Job("job-1", "user-1")

	snap := &Snapshot{
		JobID:  "job-1",
		Status: StatusCompleted,
		Result: &InlineResult{Base64: "not base64!!"},
	}

	_, err := c.Resolve(job, snap)
	var me *MaterializationError
	if !errors.As(err, &me) {
		t.Fatalf("want *MaterializationError, got %T: %v", err, err)
	}
}

func TestResolveCompletedWithoutPayloadOrManifest(t *testing.T) {
	c := NewClient("http://unused.invalid")
	job := c.Job("job-1", "user-1")

	_, err := c.Resolve(job, &Snapshot{JobID: "job-1", Status: StatusCompleted})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want *TransportError, got %T: %v", err, err)
	}
}

func TestResolveRejectsNonTerminalStatus(t *testing.T) {
	c := NewClient("http://unused.invalid")
	job := c.Job("job-1", "user-1")

	if _, err := c.Resolve(job, &Snapshot{Status: StatusProcessing}); err == nil {
		t.Fatal("resolved a processing snapshot")
	}
}

func TestResolveStreamedCompletion(t *testing.T) {
	c := NewClient("http://unused.invalid")
	job := c.Job("job-1", "user-1")

	snap := &Snapshot{
		JobID:     "job-1",
		Status:    StatusCompleted,
		Streaming: &StreamingInfo{PlaylistURL: "P", SegmentsCompleted: 4},
		Download:  &DownloadInfo{Available: true},
	}

	outcome, err := c.Resolve(job, snap)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !outcome.IsStreaming() {
		t.Fatal("streamed completion not detected")
	}
	if !outcome.Streaming.DownloadReady() {
		t.Error("download availability not carried over")
	}
}
