package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxPhotoBytes bounds a downloaded photo
const maxPhotoBytes = 20 << 20

// HTTPFetcher reads photos referenced by http(s) URLs. It cannot write.
type HTTPFetcher struct {
	client     *http.Client
	retryDelay time.Duration
}

// NewHTTPFetcher creates a fetcher with pooled connections and bounded redirects
func NewHTTPFetcher() *HTTPFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		retryDelay: time.Second,
	}
}

// Put is not supported
func (h *HTTPFetcher) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	return "", ErrReadOnly
}

// Delete is not supported
func (h *HTTPFetcher) Delete(ctx context.Context, handle string) error {
	return ErrReadOnly
}

// Get downloads a photo. Network errors and 5xx responses are retried up to
// three attempts with linear backoff; 4xx responses fail immediately.
func (h *HTTPFetcher) Get(ctx context.Context, photoURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")
	req.Header.Set("User-Agent", "catfood-scanner/1.0")

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.retryDelay):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes+1))
			if err != nil {
				return nil, fmt.Errorf("failed to read photo: %w", err)
			}
			if len(data) > maxPhotoBytes {
				return nil, fmt.Errorf("photo exceeds %d bytes", maxPhotoBytes)
			}
			return data, nil
		}

		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return nil, ErrPhotoNotFound
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, fmt.Errorf("client error: status code %d", resp.StatusCode)
		}
		if resp.StatusCode < 500 {
			return nil, fmt.Errorf("unexpected status code %d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("failed to fetch photo after 3 attempts: %w", lastErr)
}
