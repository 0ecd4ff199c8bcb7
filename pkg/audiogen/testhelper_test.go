package audiogen

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// scriptedServer replays a fixed sequence of poll responses. The last entry
// repeats once the script is exhausted. Submit and download endpoints are
// handled separately so tests can count each kind of request.
type scriptedServer struct {
	*httptest.Server

	submits   atomic.Int64
	polls     atomic.Int64
	downloads atomic.Int64
}

func newScriptedServer(t *testing.T, jobID string, pollBodies []string) *scriptedServer {
	t.Helper()

	s := &scriptedServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/job", func(w http.ResponseWriter, r *http.Request) {
		s.submits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"` + jobID + `"}`))
	})

	mux.HandleFunc("/job/"+jobID+"/download", func(w http.ResponseWriter, r *http.Request) {
		s.downloads.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"job_id":"` + jobID + `","download_url":"https://cdn.example.com/` + jobID + `.mp3","expires_in":3600}`))
	})

	mux.HandleFunc("/job/"+jobID, func(w http.ResponseWriter, r *http.Request) {
		n := s.polls.Add(1)
		idx := int(n) - 1
		if idx >= len(pollBodies) {
			idx = len(pollBodies) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(pollBodies[idx]))
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// fastBackoff keeps test poll loops in the millisecond range.
func fastBackoff() *Backoff {
	return &Backoff{
		Initial:    time.Millisecond,
		Multiplier: 1.5,
		Ceiling:    5 * time.Millisecond,
		Jitter:     0,
		rnd:        func() float64 { return 0.5 },
	}
}

func testRequest() *GenerateRequest {
	return &GenerateRequest{
		SentimentLabel: []string{"joy", "anger"},
		Intensity:      []int{7, 4},
		SpeechToText:   []string{"we got the keys today", "traffic was brutal"},
		AddedText:      []string{"", "deep breaths"},
		Summary:        []string{"moved into the new flat", "long commute"},
		MusicList:      []string{"rain.mp3"},
		UserID:         "user-1",
	}
}
