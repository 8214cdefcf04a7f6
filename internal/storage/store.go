package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ObjectStore persists media binaries for inbox replay. Upload returns the
// public URL of the stored object.
type ObjectStore interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Download(ctx context.Context, path string) ([]byte, error)
}

// HTTPStore talks to a bucket-style REST storage endpoint:
// POST {endpoint}/object/{bucket}/{path} stores, GET fetches, and
// {endpoint}/object/public/{bucket}/{path} serves the public URL.
type HTTPStore struct {
	Endpoint string
	Bucket   string
	Key      string

	httpClient *http.Client
}

func NewHTTPStore(endpoint, bucket, key string) *HTTPStore {
	return &HTTPStore{
		Endpoint:   endpoint,
		Bucket:     bucket,
		Key:        key,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *HTTPStore) objectURL(path string) string {
	return fmt.Sprintf("%s/object/%s/%s", s.Endpoint, s.Bucket, path)
}

// PublicURL composes the replay link for a stored path.
func (s *HTTPStore) PublicURL(path string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.Endpoint, s.Bucket, path)
}

func (s *HTTPStore) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.objectURL(path), bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+s.Key)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("storage upload failed: %s - %s", resp.Status, string(body))
	}

	return s.PublicURL(path), nil
}

func (s *HTTPStore) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.Key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("storage download failed: %s - %s", resp.Status, string(body))
	}

	return io.ReadAll(resp.Body)
}
