// Package storage holds recap segments and consolidated artifacts produced
// by the devserver's simulated generation pipeline.
package storage

import (
	"context"
	"io"
	"time"
)

// Storage is implemented by Cloudflare R2 in deployed environments and by
// an in-memory mock when R2 is not configured.
type Storage interface {
	// Upload stores an object and returns its public URL.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	// GetSignedURL issues a time-limited URL for downloading an object.
	GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	// GetPublicURL returns the public CDN URL for a key without touching
	// the backend.
	GetPublicURL(key string) string
}
