package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotImage is returned when the response does not carry an image content type.
	ErrNotImage = errors.New("URL doesn't point to an image")
	// ErrImageTooLarge is returned when the body exceeds the configured size limit.
	ErrImageTooLarge = errors.New("image exceeds size limit")
)

// FetchedImage holds the raw, still-encoded bytes of a remote image
type FetchedImage struct {
	Data        []byte
	ContentType string
	// Name is the last path segment of the source, used to derive output filenames.
	Name string
}

// ImageFetcher retrieves raw image bytes from a location
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (*FetchedImage, error)
}

// FetchError describes a non-success HTTP status from the image origin
type FetchError struct {
	StatusCode int
	Message    string
}

func (e *FetchError) Error() string {
	return e.Message
}

// Retryable reports whether the status is worth retrying.
func (e *FetchError) Retryable() bool {
	return e.StatusCode >= 500
}

func newFetchError(status int) *FetchError {
	switch status {
	case http.StatusForbidden:
		return &FetchError{StatusCode: status, Message: "Access denied - try a different image URL or direct image link"}
	case http.StatusNotFound:
		return &FetchError{StatusCode: status, Message: "Image not found - check if the URL is correct"}
	}
	if status >= 500 {
		return &FetchError{StatusCode: status, Message: fmt.Sprintf("server error: status code %d", status)}
	}
	return &FetchError{StatusCode: status, Message: fmt.Sprintf("client error: status code %d", status)}
}

// HTTPOptions tunes the HTTP fetcher
type HTTPOptions struct {
	Timeout     time.Duration
	MaxBytes    int64
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
}

// DefaultHTTPOptions returns the production fetch settings
func DefaultHTTPOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:     30 * time.Second,
		MaxBytes:    25 * 1024 * 1024,
		MaxAttempts: 3,
		Backoff:     time.Second,
	}
}

// HTTPImageFetcher downloads images over HTTP with bounded retries
type HTTPImageFetcher struct {
	client  *http.Client
	options HTTPOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(options HTTPOptions) *HTTPImageFetcher {
	defaults := DefaultHTTPOptions()
	if options.Timeout <= 0 {
		options.Timeout = defaults.Timeout
	}
	if options.MaxBytes <= 0 {
		options.MaxBytes = defaults.MaxBytes
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = defaults.MaxAttempts
	}
	if options.Backoff < 0 {
		options.Backoff = defaults.Backoff
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 16 << 10,
	}

	return &HTTPImageFetcher{
		options: options,
		client: &http.Client{
			Transport: transport,
			Timeout:   options.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (limit: 5)")
				}
				return nil
			},
		},
	}
}

// Fetch downloads imageURL. 4xx responses and non-image content are not retried.
func (h *HTTPImageFetcher) Fetch(ctx context.Context, imageURL string) (*FetchedImage, error) {
	var lastErr error

	for attempt := 0; attempt < h.options.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.options.Backoff):
			}
		}

		img, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return img, nil
		}
		lastErr = err

		var fetchErr *FetchError
		if errors.As(err, &fetchErr) && !fetchErr.Retryable() {
			return nil, err
		}
		if errors.Is(err, ErrNotImage) || errors.Is(err, ErrImageTooLarge) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.options.MaxAttempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (*FetchedImage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "image/webp,image/apng,image/*,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, newFetchError(resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, fmt.Errorf("%w (content type %q)", ErrNotImage, contentType)
	}

	if resp.ContentLength > h.options.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, h.options.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > h.options.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrImageTooLarge, h.options.MaxBytes)
	}

	return &FetchedImage{
		Data:        data,
		ContentType: mediaType,
		Name:        path.Base(req.URL.Path),
	}, nil
}
