package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"image"
	"net/http"
	"time"

	apperrors "github.com/anime-shed/image-search-go/internal/errors"
)

const fetchAttempts = 3

// HTTPImageFetcher loads images over http and https with a bounded retry
type HTTPImageFetcher struct {
	client  *http.Client
	backoff time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher with a one second
// linear backoff between attempts.
func NewHTTPImageFetcher(timeout time.Duration) *HTTPImageFetcher {
	return NewHTTPImageFetcherWithBackoff(timeout, time.Second)
}

// NewHTTPImageFetcherWithBackoff creates an HTTP image fetcher whose n-th
// retry waits n*backoff.
func NewHTTPImageFetcherWithBackoff(timeout, backoff time.Duration) *HTTPImageFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		// Connection pooling sized for passes over many remote images
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		backoff: backoff,
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// Load fetches and decodes the image at imageURL. 4xx responses fail
// immediately, transport errors and 5xx responses are retried.
func (h *HTTPImageFetcher) Load(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, image/tiff, image/bmp, */*")
	req.Header.Set("User-Agent", "image-search/1.0")

	var lastErr error
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			if resp.StatusCode == http.StatusOK {
				defer resp.Body.Close()
				img, _, err := Decode(resp.Body)
				return img, err
			}
			resp.Body.Close()

			// 4xx client errors are non-retryable
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				lastErr = fmt.Errorf("client error: status code %d", resp.StatusCode)
				break
			}
			lastErr = fmt.Errorf("server error: status code %d", resp.StatusCode)
		}

		if attempt < fetchAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, apperrors.NewTimeoutError("image fetch cancelled", ctx.Err())
			case <-time.After(time.Duration(attempt+1) * h.backoff):
			}
		}
	}

	return nil, apperrors.NewNetworkError(
		fmt.Sprintf("failed to fetch image after %d attempts", fetchAttempts),
		fmt.Errorf("failed to fetch image after %d attempts: %w", fetchAttempts, lastErr))
}
