package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/salocin93/freesign-sub000/config"
)

// DocumentLoadError means the render provider could not report a page count
// at all. Fatal for the view; surfaced to the caller with a manual retry,
// never retried silently.
type DocumentLoadError struct {
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("document load failed: %v", e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// PageRenderError means a single page failed to render. Localized: other
// pages are unaffected, the page enters its error/retry cycle.
type PageRenderError struct {
	Page int
	Err  error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("page %d render failed: %v", e.Page, e.Err)
}

func (e *PageRenderError) Unwrap() error { return e.Err }

// RenderService is the client for the external page rasterizer. The engine
// treats it as a black box: it requests pages and receives completion or
// failure signals, by callback or by polling.
type RenderService struct {
	config     *config.RendererConfig
	httpClient *http.Client
}

// RenderTaskRequest asks the rasterizer to render one page at a given scale
// and rotation.
type RenderTaskRequest struct {
	URL      string  `json:"url"`
	Page     int     `json:"page"`
	Scale    float64 `json:"scale"`
	Rotation int     `json:"rotation"`
	Callback string  `json:"callback,omitempty"`
	Seed     string  `json:"seed,omitempty"`
	DataID   string  `json:"data_id,omitempty"`
}

// RenderTaskResponse represents the response from task creation
type RenderTaskResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID string `json:"task_id"`
	} `json:"data"`
}

// RenderStatusResponse represents the task status query response
type RenderStatusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		TaskID         string  `json:"task_id"`
		DataID         string  `json:"data_id"`
		State          string  `json:"state"` // pending, running, done, failed
		SurfaceURL     string  `json:"surface_url,omitempty"`
		MeasuredHeight float64 `json:"measured_height,omitempty"`
		ErrorMsg       string  `json:"err_msg,omitempty"`
	} `json:"data"`
}

// PageCountResponse is the document registration response.
type PageCountResponse struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
	Data    struct {
		PageCount int `json:"page_count"`
	} `json:"data"`
}

// RenderCallbackPayload is what the rasterizer posts to our callback URL.
type RenderCallbackPayload struct {
	Checksum string `json:"checksum"`
	Content  string `json:"content"`
}

func NewRenderService(cfg *config.RendererConfig) *RenderService {
	return &RenderService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GetPageCount registers a document with the rasterizer and returns its page
// count. Failures come back as a DocumentLoadError.
func (s *RenderService) GetPageCount(ctx context.Context, pdfURL string) (int, error) {
	reqBody := map[string]string{"url": pdfURL}

	var result PageCountResponse
	if err := s.post(ctx, "/render/info", reqBody, &result); err != nil {
		return 0, &DocumentLoadError{Err: err}
	}
	if result.Code != 0 {
		return 0, &DocumentLoadError{Err: fmt.Errorf("renderer API error: %s", result.Message)}
	}
	if result.Data.PageCount < 0 {
		return 0, &DocumentLoadError{Err: fmt.Errorf("renderer reported negative page count")}
	}
	return result.Data.PageCount, nil
}

// CreateRenderTask submits one page render. dataID is echoed back in the
// callback so the completion can be routed to the right session, page and
// epoch.
func (s *RenderService) CreateRenderTask(ctx context.Context, pdfURL string, page int, scale float64, rotation int, dataID string) (*RenderTaskResponse, error) {
	reqBody := RenderTaskRequest{
		URL:      pdfURL,
		Page:     page,
		Scale:    scale,
		Rotation: rotation,
		DataID:   dataID,
	}

	if s.config.CallbackURL != "" {
		reqBody.Callback = s.config.CallbackURL
		reqBody.Seed = s.config.Seed
	}

	var result RenderTaskResponse
	if err := s.post(ctx, "/render/task", reqBody, &result); err != nil {
		return nil, &PageRenderError{Page: page, Err: err}
	}
	if result.Code != 0 {
		return nil, &PageRenderError{Page: page, Err: fmt.Errorf("renderer API error: %s", result.Message)}
	}
	return &result, nil
}

// GetTaskStatus queries the state of a render task
func (s *RenderService) GetTaskStatus(ctx context.Context, taskID string) (*RenderStatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.config.APIURL+"/render/task/"+taskID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result RenderStatusResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	return &result, nil
}

// VerifyChecksum checks a callback's checksum: sha256 over content plus the
// shared seed.
func (s *RenderService) VerifyChecksum(content, checksum string) bool {
	sum := sha256.Sum256([]byte(content + s.config.Seed))
	return hex.EncodeToString(sum[:]) == checksum
}

// PollInterval returns the configured poll interval
func (s *RenderService) PollInterval() time.Duration {
	return time.Duration(s.config.PollSeconds) * time.Second
}

// PollMaxAttempts returns the configured poll attempt bound
func (s *RenderService) PollMaxAttempts() int {
	return s.config.PollMaxAttempts
}

// UsesCallback reports whether completions arrive by callback instead of
// polling.
func (s *RenderService) UsesCallback() bool {
	return s.config.CallbackURL != ""
}

func (s *RenderService) post(ctx context.Context, path string, reqBody any, out any) error {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.config.APIURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.config.APIToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}
	return nil
}
