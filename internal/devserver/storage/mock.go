package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// MockStorage keeps objects in memory and fabricates URLs. It is the
// fallback when R2 credentials are missing, so the devserver can run
// standalone on a laptop.
type MockStorage struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMockStorage(baseURL string) *MockStorage {
	if baseURL == "" {
		baseURL = "https://mock-storage.local"
	}
	return &MockStorage{
		baseURL: baseURL,
		objects: make(map[string][]byte),
	}
}

func (m *MockStorage) Upload(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return m.GetPublicURL(key), nil
}

func (m *MockStorage) GetSignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	m.mu.RLock()
	_, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, key, int(expiry.Seconds())), nil
}

func (m *MockStorage) GetPublicURL(key string) string {
	return fmt.Sprintf("%s/%s", m.baseURL, key)
}

// Object returns the stored bytes for a key. Test helper.
func (m *MockStorage) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	return data, ok
}
