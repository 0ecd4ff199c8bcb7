package audiogen

import (
	"context"
	"log"
	"time"
)

// Job is a handle to one submitted generation job. Handles are cheap and
// stateless; each Wait call creates its own backoff state, so a job can be
// re-driven from scratch after its original caller was torn down.
type Job struct {
	ID     string
	UserID string

	client *Client
}

// NotifyFunc receives every non-terminal snapshot observed by a poll loop.
// Progress reporting is decoupled from the eventually-returned result: the
// callback fires for pending, processing and streaming snapshots and never
// for the terminal one.
type NotifyFunc func(*Snapshot)

type waitConfig struct {
	backoff *Backoff
	maxWait time.Duration
	notify  NotifyFunc
}

// WaitOption tunes one Wait call.
type WaitOption func(*waitConfig)

// WithNotify registers a status-change callback.
func WithNotify(fn NotifyFunc) WaitOption {
	return func(cfg *waitConfig) { cfg.notify = fn }
}

// WithMaxWait bounds the total wall-clock time of the poll loop.
func WithMaxWait(d time.Duration) WaitOption {
	return func(cfg *waitConfig) { cfg.maxWait = d }
}

// WithBackoff replaces the default backoff scheduler.
func WithBackoff(b *Backoff) WaitOption {
	return func(cfg *waitConfig) { cfg.backoff = b }
}

// Wait polls the job until it reaches a terminal state and returns the
// terminal snapshot on success.
//
// The first poll is issued immediately; a job that completes on it causes
// zero waits. Non-terminal snapshots are forwarded to the notify callback,
// then the loop sleeps the current backoff interval and polls again. A
// failed status returns *JobError, exceeding the maximum total wait returns
// *TimeoutError, and a cancelled context returns ctx.Err(). Polls within
// one loop are strictly sequential.
func (j *Job) Wait(ctx context.Context, opts ...WaitOption) (*Snapshot, error) {
	return j.wait(ctx, func(snap *Snapshot) bool {
		return snap.Status == StatusCompleted
	}, opts...)
}

// wait drives the poll loop until isDone accepts a snapshot. Failed
// statuses and the max-wait bound terminate the loop regardless of isDone.
func (j *Job) wait(ctx context.Context, isDone func(*Snapshot) bool, opts ...WaitOption) (*Snapshot, error) {
	cfg := waitConfig{maxWait: DefaultMaxWait}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.backoff == nil {
		cfg.backoff = NewBackoff()
	}

	start := time.Now()
	lastStatus := Status("")
	maxSegments := 0

	for attempt := 1; ; attempt++ {
		snap, err := j.client.Poll(ctx, j.ID, j.UserID)
		if err != nil {
			return nil, err
		}
		lastStatus = snap.Status

		// Segment counts are server-reported and only advisory. Clamp them
		// monotonically so a misbehaving server never shows regress.
		if snap.Streaming != nil {
			if snap.Streaming.SegmentsCompleted < maxSegments {
				snap.Streaming.SegmentsCompleted = maxSegments
			} else {
				maxSegments = snap.Streaming.SegmentsCompleted
			}
		}

		log.Printf("[AudioGen] poll #%d job=%s status=%s", attempt, j.ID, snap.Status)

		if snap.Status == StatusFailed {
			if snap.Err != nil {
				return nil, snap.Err
			}
			return nil, &JobError{JobID: j.ID, Message: "job failed without error detail"}
		}

		if isDone(snap) {
			return snap, nil
		}

		if cfg.notify != nil {
			cfg.notify(snap)
		}

		if time.Since(start) >= cfg.maxWait {
			return nil, &TimeoutError{JobID: j.ID, Waited: time.Since(start), LastStatus: lastStatus}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(cfg.backoff.Next()):
		}

		if time.Since(start) >= cfg.maxWait {
			return nil, &TimeoutError{JobID: j.ID, Waited: time.Since(start), LastStatus: lastStatus}
		}
	}
}
