package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-image-enhancer/internal/analyzer"
	"go-image-enhancer/internal/config"
	"go-image-enhancer/internal/enhancer"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/repository"
	"go-image-enhancer/internal/service"
	"go-image-enhancer/internal/storage"
	"go-image-enhancer/pkg/models"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeService struct {
	convertResp *models.ConvertResponse
	analyzeResp *models.AnalyzeResponse
	artifact    *service.Artifact
	job         *models.JobRecord
	jobs        []*models.JobRecord
	err         error

	lastLimit int
}

func (f *fakeService) Convert(ctx context.Context, req models.ConvertRequest) (*models.ConvertResponse, error) {
	return f.convertResp, f.err
}

func (f *fakeService) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	return f.analyzeResp, f.err
}

func (f *fakeService) OpenArtifact(ctx context.Context, filename string) (*service.Artifact, error) {
	return f.artifact, f.err
}

func (f *fakeService) GetJob(ctx context.Context, id string) (*models.JobRecord, error) {
	return f.job, f.err
}

func (f *fakeService) History(ctx context.Context, imageURL string, limit int) ([]*models.JobRecord, error) {
	f.lastLimit = limit
	return f.jobs, f.err
}

func (f *fakeService) Stats(ctx context.Context) map[string]interface{} {
	return map[string]interface{}{"stored_jobs": 3}
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1024,
	}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode error body %q: %v", rec.Body.String(), err)
	}
	if resp.Success {
		t.Error("Expected success=false in error body")
	}
	return resp
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(&fakeService{}, testConfig())
	rec := doRequest(t, h, http.MethodGet, "/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var body struct {
		Status           string                 `json:"status"`
		SupportedFormats []string               `json:"supported_formats"`
		AIFeatures       []string               `json:"ai_features"`
		Stats            map[string]interface{} `json:"stats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Status != "healthy" || len(body.SupportedFormats) != 5 || len(body.AIFeatures) != 5 {
		t.Errorf("Unexpected health body: %+v", body)
	}
	if body.Stats["stored_jobs"] != float64(3) {
		t.Errorf("Expected stats to be passed through, got %v", body.Stats)
	}
}

func TestConvertHandler(t *testing.T) {
	tests := []struct {
		name       string
		svc        *fakeService
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "success",
			svc:        &fakeService{convertResp: &models.ConvertResponse{Success: true, ID: "id-1", Filename: "ai_enhanced_a_12345678.png"}},
			body:       `{"image_url":"https://example.com/a.png"}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed json",
			svc:        &fakeService{},
			body:       `{"image_url":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request format",
		},
		{
			name:       "body too large",
			svc:        &fakeService{},
			body:       `{"image_url":"https://example.com/` + strings.Repeat("a", 2048) + `"}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantError:  "request body too large",
		},
		{
			name:       "validation",
			svc:        &fakeService{err: apperrors.NewValidationError("Quality must be between 1 and 100", nil)},
			body:       `{"image_url":"https://example.com/a.png","quality":500}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Quality must be between 1 and 100",
		},
		{
			name:       "upstream failure",
			svc:        &fakeService{err: apperrors.NewNetworkError("Failed to fetch image", io.ErrUnexpectedEOF)},
			body:       `{"image_url":"https://example.com/a.png"}`,
			wantStatus: http.StatusBadGateway,
			wantError:  "Failed to fetch image: unexpected EOF",
		},
		{
			name:       "processing failure",
			svc:        &fakeService{err: apperrors.NewProcessingError("Failed to process image", enhancer.ErrProcessingFailed)},
			body:       `{"image_url":"https://example.com/a.png"}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  "Failed to process image: image processing failed",
		},
		{
			name:       "internal",
			svc:        &fakeService{err: apperrors.NewInternalError("failed to store enhanced image", io.ErrShortWrite)},
			body:       `{"image_url":"https://example.com/a.png"}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "failed to store enhanced image",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, NewHandler(tt.svc, testConfig()), http.MethodPost, "/convert", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("Expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if tt.wantError == "" {
				return
			}
			if got := decodeError(t, rec).Error; !strings.HasPrefix(got, tt.wantError) {
				t.Errorf("Expected error starting with %q, got %q", tt.wantError, got)
			}
		})
	}
}

func TestAnalyzeHandler(t *testing.T) {
	svc := &fakeService{analyzeResp: &models.AnalyzeResponse{Success: true, Width: 10, Height: 5}}
	rec := doRequest(t, NewHandler(svc, testConfig()), http.MethodPost, "/analyze", `{"image_url":"https://example.com/a.png"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	var resp models.AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if resp.Width != 10 || resp.Height != 5 {
		t.Errorf("Expected 10x5, got %dx%d", resp.Width, resp.Height)
	}
}

func TestDownloadHandler(t *testing.T) {
	payload := []byte("png-bytes")
	svc := &fakeService{artifact: &service.Artifact{
		Name:        "ai_enhanced_a_12345678.png",
		ContentType: "image/png",
		Size:        int64(len(payload)),
		Body:        io.NopCloser(bytes.NewReader(payload)),
	}}

	rec := doRequest(t, NewHandler(svc, testConfig()), http.MethodGet, "/download/ai_enhanced_a_12345678.png", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Expected image/png, got %s", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="ai_enhanced_a_12345678.png"` {
		t.Errorf("Unexpected Content-Disposition %s", got)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Errorf("Expected body %q, got %q", payload, rec.Body.Bytes())
	}

	missing := &fakeService{err: apperrors.NewNotFoundError("File not found", nil)}
	rec = doRequest(t, NewHandler(missing, testConfig()), http.MethodGet, "/download/nope.png", "")
	if rec.Code != http.StatusNotFound || decodeError(t, rec).Error != "File not found" {
		t.Errorf("Expected 404 File not found, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestJobAndHistoryHandlers(t *testing.T) {
	svc := &fakeService{
		job:  &models.JobRecord{ID: "id-1", Filename: "f.png"},
		jobs: []*models.JobRecord{{ID: "id-1"}, {ID: "id-0"}},
	}
	h := NewHandler(svc, testConfig())

	rec := doRequest(t, h, http.MethodGet, "/jobs/id-1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"filename":"f.png"`) {
		t.Errorf("Unexpected job response %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, h, http.MethodGet, "/history?image_url=https://example.com/a.png&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}
	if svc.lastLimit != 5 {
		t.Errorf("Expected limit 5 to reach the service, got %d", svc.lastLimit)
	}
	var body struct {
		Jobs []models.JobRecord `json:"jobs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || len(body.Jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %s (%v)", rec.Body.String(), err)
	}

	rec = doRequest(t, h, http.MethodGet, "/history?image_url=https://example.com/a.png&limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad limit, got %d", rec.Code)
	}
}

func TestNoRoute(t *testing.T) {
	rec := doRequest(t, NewHandler(&fakeService{}, testConfig()), http.MethodGet, "/missing", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
	decodeError(t, rec)
}

func TestConvertEndToEnd(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{40, 35, 30, 255})
		}
	}
	var encoded bytes.Buffer
	if err := png.Encode(&encoded, img); err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/dark.png" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(encoded.Bytes())
	}))
	defer origin.Close()

	dir := t.TempDir()
	store, err := storage.NewLocalArtifactStore(filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	jobs, err := repository.NewSQLiteJobRepository(filepath.Join(dir, "jobs.db"))
	if err != nil {
		t.Fatalf("Failed to open repository: %v", err)
	}
	defer jobs.Close()
	pool := service.NewWorkerPool(2)
	defer pool.Close()

	fetchOptions := storage.DefaultHTTPOptions()
	fetchOptions.Backoff = time.Millisecond
	svc := service.NewEnhancementService(service.Dependencies{
		Fetcher:   storage.NewHTTPImageFetcher(fetchOptions),
		Artifacts: store,
		Jobs:      jobs,
		Processor: enhancer.New(),
		Analyzer:  analyzer.New(),
		Pool:      pool,
	}, service.Options{PreviewMaxBytes: 500000, PreviewSize: 300})
	h := NewHandler(svc, testConfig())

	rec := doRequest(t, h, http.MethodPost, "/convert",
		`{"image_url":"`+origin.URL+`/images/dark.png","format":"JPG","quality":90}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.ConvertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if resp.Format != "JPEG" || resp.MIMEType != "image/jpeg" || !strings.HasSuffix(resp.Filename, ".jpg") {
		t.Errorf("Unexpected output format fields: %+v", resp)
	}
	if !strings.Contains(resp.EnhancementsApplied, enhancer.LabelBrightness) {
		t.Errorf("Expected brightness boost, got %q", resp.EnhancementsApplied)
	}

	rec = doRequest(t, h, http.MethodGet, "/download/"+resp.Filename, "")
	if rec.Code != http.StatusOK || rec.Body.Len() != resp.SizeBytes {
		t.Errorf("Expected %d byte download, got %d bytes with status %d", resp.SizeBytes, rec.Body.Len(), rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Expected image/jpeg download, got %s", got)
	}

	rec = doRequest(t, h, http.MethodGet, "/jobs/"+resp.ID, "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected job lookup to succeed, got %d", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/convert", `{"image_url":"`+origin.URL+`/missing.png"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400 for upstream 404, got %d", rec.Code)
	}
	if got := decodeError(t, rec).Error; got != "Image not found - check if the URL is correct" {
		t.Errorf("Unexpected error text %q", got)
	}
}
