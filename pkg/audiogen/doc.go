// Package audiogen drives asynchronously processed audio-generation jobs to
// completion against the Moodtape job endpoint.
//
// The server accepts a generation request and returns a job identifier
// immediately; the actual work runs out of band. This package submits the
// job, polls its status with bounded jittered exponential backoff, and
// resolves the terminal result into either a locally materialized artifact
// (inline delivery) or a playlist handle with an on-demand download URL
// (progressive segment delivery).
//
// Typical use:
//
//	client := audiogen.NewClient("https://api.example.com")
//	outcome, err := client.Generate(ctx, req,
//	    audiogen.WithNotify(func(s *audiogen.Snapshot) {
//	        log.Printf("status: %s", s.Status)
//	    }))
//
// Each driven job owns its backoff state and issues at most one request at
// a time; the client itself is safe for concurrent use across jobs.
package audiogen
