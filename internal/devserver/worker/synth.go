package worker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moodtape/audiogen/pkg/audiogen"
)

func decodeRequest(payload []byte) (*audiogen.GenerateRequest, error) {
	var req audiogen.GenerateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// failureRequested reports whether the request asks for a simulated
// failure. Any incident summary containing "fail" triggers one.
func failureRequested(req *audiogen.GenerateRequest) (string, bool) {
	for i, summary := range req.Summary {
		if strings.Contains(strings.ToLower(summary), "fail") {
			return fmt.Sprintf("incident %d rejected by generation model", i), true
		}
	}
	return "", false
}

// synthesizeRecap fabricates a deterministic stand-in for the generated
// recap audio. Real audio synthesis is out of scope for the devserver; the
// bytes only need to be stable and recognizable in assertions.
func synthesizeRecap(jobID string, req *audiogen.GenerateRequest) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "MOCKMP3:%s", jobID)
	for i, summary := range req.Summary {
		fmt.Fprintf(&b, "|%d:%s", i, summary)
	}
	for _, track := range req.MusicList {
		fmt.Fprintf(&b, "|bg:%s", track)
	}
	return b.Bytes()
}

func synthesizeSegment(jobID string, req *audiogen.GenerateRequest, idx int) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "MOCKSEG:%s:%d", jobID, idx)
	if idx-1 < len(req.Summary) {
		fmt.Fprintf(&b, "|%s", req.Summary[idx-1])
	}
	return b.Bytes()
}

// renderPlaylist builds the HLS playlist for the segments published so
// far. The ENDLIST tag appears only once the last segment is up.
func renderPlaylist(segmentURLs []string, final bool) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-TARGETDURATION:10\n")
	for _, u := range segmentURLs {
		b.WriteString("#EXTINF:10.0,\n")
		b.WriteString(u)
		b.WriteString("\n")
	}
	if final {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}
