package lalal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/pkg/httpx"
	"github.com/aikhq/aik-backend/internal/platform/envutil"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// Client talks to the LALAL.AI source-separation API.
type Client interface {
	// Upload pushes raw audio bytes and returns the provider file id.
	Upload(ctx context.Context, content []byte, filename string) (*UploadResult, error)
	// StartSplit queues a vocal/instrumental split for an uploaded file.
	StartSplit(ctx context.Context, fileID string) (*SplitResult, error)
	// Check reports the current state of a queued split.
	Check(ctx context.Context, fileID string) (*CheckResult, error)
}

type Config struct {
	APIKey     string
	BaseURL    string
	Stem       string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("LALAL_TIMEOUT_SECONDS", 30)
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("LALAL_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("LALAL_BASE_URL")),
		Stem:       envutil.String("LALAL_STEM", "vocals"),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: envutil.Int("LALAL_MAX_RETRIES", 2),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing LALAL_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.lalal.ai/api"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Stem == "" {
		cfg.Stem = "vocals"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "LalalClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

// ResponseContext is the raw provider response persisted into step payloads.
type ResponseContext struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

type UploadResult struct {
	FileID     string
	APIContext ResponseContext
}

type SplitResult struct {
	TaskID     string
	APIContext ResponseContext
}

const (
	StateProgress = "progress"
	StateSuccess  = "success"
	StateError    = "error"
)

type CheckResult struct {
	State           string
	Progress        int
	VocalURL        string
	InstrumentalURL string
	Duration        float64
	ErrorMessage    string
	APIContext      ResponseContext
}

// --- wire types ---

type uploadResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
	Error  string `json:"error"`
}

type splitResponse struct {
	Status string `json:"status"`
	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

type checkResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Result map[string]struct {
		Task *struct {
			State    string `json:"state"`
			Progress int    `json:"progress"`
			Error    string `json:"error"`
		} `json:"task"`
		Split *struct {
			StemTrack string  `json:"stem_track"`
			BackTrack string  `json:"back_track"`
			Duration  float64 `json:"duration"`
		} `json:"split"`
	} `json:"result"`
}

func (c *client) Upload(ctx context.Context, content []byte, filename string) (*UploadResult, error) {
	if len(content) == 0 {
		return nil, apperr.Validation("empty_upload", "no audio content to upload")
	}
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", filename),
		"Content-Type":        "application/octet-stream",
	}
	raw, rc, err := c.do(ctx, "POST", "/upload/", bytes.NewReader(content), headers)
	if err != nil {
		return nil, err
	}
	var resp uploadResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "upload_decode_failed", err)
	}
	if resp.Status != "success" || resp.ID == "" {
		return nil, apperr.ProviderFailure("upload_rejected", firstNonEmpty(resp.Error, "upload rejected"), &apperr.ProviderContext{StatusCode: rc.StatusCode, Body: rc.Body})
	}
	return &UploadResult{FileID: resp.ID, APIContext: rc}, nil
}

func (c *client) StartSplit(ctx context.Context, fileID string) (*SplitResult, error) {
	if fileID == "" {
		return nil, apperr.Validation("missing_file_id", "file id required")
	}
	form := url.Values{}
	params, _ := json.Marshal([]map[string]string{{"id": fileID, "stem": c.cfg.Stem}})
	form.Set("params", string(params))
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	raw, rc, err := c.do(ctx, "POST", "/split/", strings.NewReader(form.Encode()), headers)
	if err != nil {
		return nil, err
	}
	var resp splitResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "split_decode_failed", err)
	}
	if resp.Status != "success" {
		return nil, apperr.ProviderFailure("split_rejected", firstNonEmpty(resp.Error, "split rejected"), &apperr.ProviderContext{StatusCode: rc.StatusCode, Body: rc.Body})
	}
	return &SplitResult{TaskID: firstNonEmpty(resp.TaskID, fileID), APIContext: rc}, nil
}

func (c *client) Check(ctx context.Context, fileID string) (*CheckResult, error) {
	if fileID == "" {
		return nil, apperr.Validation("missing_file_id", "file id required")
	}
	form := url.Values{}
	form.Set("id", fileID)
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	raw, rc, err := c.do(ctx, "POST", "/check/", strings.NewReader(form.Encode()), headers)
	if err != nil {
		return nil, err
	}
	var resp checkResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "check_decode_failed", err)
	}
	entry, ok := resp.Result[fileID]
	if !ok || entry.Task == nil {
		return nil, apperr.ProviderFailure("split_results_not_found", "no result entry for file", &apperr.ProviderContext{StatusCode: rc.StatusCode, Body: rc.Body})
	}
	out := &CheckResult{State: entry.Task.State, Progress: entry.Task.Progress, APIContext: rc}
	switch entry.Task.State {
	case StateSuccess:
		if entry.Split == nil || entry.Split.StemTrack == "" || entry.Split.BackTrack == "" {
			return nil, apperr.ProviderFailure("split_results_not_found", "split finished without stem urls", &apperr.ProviderContext{StatusCode: rc.StatusCode, Body: rc.Body})
		}
		out.VocalURL = entry.Split.StemTrack
		out.InstrumentalURL = entry.Split.BackTrack
		out.Duration = entry.Split.Duration
	case StateError:
		out.ErrorMessage = entry.Task.Error
	}
	return out, nil
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, headers map[string]string) ([]byte, ResponseContext, error) {
	backoff := 1 * time.Second

	// Bodies must be replayable across retries.
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = io.ReadAll(body)
		if err != nil {
			return nil, ResponseContext{}, apperr.Network("read_body_failed", err)
		}
	}

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ResponseContext{}, apperr.Network("context_done", ctx.Err())
		}

		raw, rc, resp, err := c.doOnce(ctx, method, path, bodyBytes, headers)
		if err == nil {
			return raw, rc, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, rc, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("LALAL request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.cfg.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
}

func (c *client) doOnce(ctx context.Context, method, path string, body []byte, headers map[string]string) ([]byte, ResponseContext, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, ResponseContext{}, nil, apperr.Network("build_request_failed", err)
	}
	req.Header.Set("Authorization", "license "+c.cfg.APIKey)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ResponseContext{}, nil, apperr.Network("request_failed", err)
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, ResponseContext{StatusCode: resp.StatusCode}, resp, apperr.Network("read_response_failed", readErr)
	}

	rc := ResponseContext{StatusCode: resp.StatusCode, Body: truncate(string(raw), 4000)}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, rc, resp, apperr.ProviderFailure("http_error", fmt.Sprintf("lalal http %d", resp.StatusCode), &apperr.ProviderContext{StatusCode: resp.StatusCode, Body: rc.Body})
	}
	return raw, rc, resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
