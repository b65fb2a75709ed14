package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// Valid minimal PNG data for a 1x1 transparent pixel
var pngData = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4,
	0x89, 0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0D, 0x0A, 0x2D, 0xB4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44, 0xAE,
	0x42, 0x60, 0x82,
}

func newTestFetcher() *HTTPImageFetcher {
	return NewHTTPImageFetcher(HTTPOptions{Timeout: 5 * time.Second, MaxBytes: 1024, MaxAttempts: 3, Backoff: time.Millisecond})
}

func TestHTTPImageFetcher_RetryLogic(t *testing.T) {
	tests := []struct {
		name          string
		responses     []int // Status codes to return in sequence
		expectRetries int   // Expected number of requests
		expectError   bool
		errorContains string
	}{
		{
			name:          "Success on first attempt",
			responses:     []int{200},
			expectRetries: 1,
		},
		{
			name:          "Success on second attempt after 5xx",
			responses:     []int{500, 200},
			expectRetries: 2,
		},
		{
			name:          "404 - no retry, friendly message",
			responses:     []int{404},
			expectRetries: 1,
			expectError:   true,
			errorContains: "Image not found - check if the URL is correct",
		},
		{
			name:          "403 - no retry, friendly message",
			responses:     []int{403},
			expectRetries: 1,
			expectError:   true,
			errorContains: "Access denied - try a different image URL or direct image link",
		},
		{
			name:          "4xx after 5xx - should retry until 4xx then stop",
			responses:     []int{500, 404},
			expectRetries: 2,
			expectError:   true,
			errorContains: "Image not found",
		},
		{
			name:          "All 5xx errors - retry all attempts",
			responses:     []int{500, 502, 503},
			expectRetries: 3,
			expectError:   true,
			errorContains: "server error: status code 503",
		},
		{
			name:          "Other 4xx - stop on first",
			responses:     []int{400},
			expectRetries: 1,
			expectError:   true,
			errorContains: "client error: status code 400",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var requestCount int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(atomic.AddInt32(&requestCount, 1)) - 1
				if n >= len(tt.responses) {
					w.WriteHeader(500)
					return
				}
				if tt.responses[n] == 200 {
					w.Header().Set("Content-Type", "image/png")
					w.Write(pngData)
					return
				}
				w.WriteHeader(tt.responses[n])
				w.Write([]byte(fmt.Sprintf("Error %d", tt.responses[n])))
			}))
			defer server.Close()

			img, err := newTestFetcher().Fetch(context.Background(), server.URL+"/photos/cat.png")

			if got := int(atomic.LoadInt32(&requestCount)); got != tt.expectRetries {
				t.Errorf("Expected %d requests, got %d", tt.expectRetries, got)
			}

			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error, but got none")
				}
				if !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain '%s', got: %s", tt.errorContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %s", err.Error())
			}
			if len(img.Data) != len(pngData) || img.ContentType != "image/png" || img.Name != "cat.png" {
				t.Errorf("Unexpected fetched image: %d bytes, %s, %s", len(img.Data), img.ContentType, img.Name)
			}
		})
	}
}

func TestHTTPImageFetcher_FetchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
	if fetchErr.StatusCode != http.StatusForbidden || fetchErr.Retryable() {
		t.Errorf("Unexpected fetch error: %+v", fetchErr)
	}
}

func TestHTTPImageFetcher_AcceptsAnySuccessStatus(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNonAuthoritativeInfo, http.StatusPartialContent} {
		t.Run(fmt.Sprint(status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				w.WriteHeader(status)
				w.Write(pngData)
			}))
			defer server.Close()

			img, err := newTestFetcher().Fetch(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Expected status %d to succeed, got %v", status, err)
			}
			if len(img.Data) != len(pngData) {
				t.Errorf("Expected %d bytes, got %d", len(pngData), len(img.Data))
			}
		})
	}
}

func TestHTTPImageFetcher_RejectsNonImage(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrNotImage) {
		t.Errorf("Expected ErrNotImage, got %v", err)
	}
	if requestCount != 1 {
		t.Errorf("Expected no retry for non-image content, got %d requests", requestCount)
	}
}

func TestHTTPImageFetcher_SizeLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(make([]byte, 4096))
	}))
	defer server.Close()

	_, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Errorf("Expected ErrImageTooLarge, got %v", err)
	}
}

func TestHTTPImageFetcher_SendsBrowserHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
			t.Errorf("Expected browser user agent, got %q", r.Header.Get("User-Agent"))
		}
		if !strings.Contains(r.Header.Get("Accept"), "image/") {
			t.Errorf("Expected image accept header, got %q", r.Header.Get("Accept"))
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	if _, err := newTestFetcher().Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

func TestHTTPImageFetcher_NetworkError_Retry(t *testing.T) {
	var requestCount int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requestCount, 1) < 3 {
			// Simulate network error by closing connection
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, _ := hj.Hijack()
				conn.Close()
			}
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngData)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(HTTPOptions{MaxAttempts: 3, Backoff: 20 * time.Millisecond})

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), server.URL)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected success after retries, got error: %s", err.Error())
	}
	if requestCount != 3 {
		t.Errorf("Expected 3 requests, got %d", requestCount)
	}
	// Linear backoff: 1x + 2x
	if duration < 60*time.Millisecond {
		t.Errorf("Expected at least 60ms due to backoff, took %v", duration)
	}
}

func TestHTTPImageFetcher_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	fetcher := NewHTTPImageFetcher(HTTPOptions{MaxAttempts: 3, Backoff: time.Hour})
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := fetcher.Fetch(ctx, server.URL)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
