package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/pkg/httpx"
	"github.com/aikhq/aik-backend/internal/platform/envutil"
	"github.com/aikhq/aik-backend/internal/platform/logger"
)

// Client talks to the AssemblyAI transcription API. It covers both the ASR
// role (submit and poll a transcript) and the aligner role (VTT export of a
// completed transcript).
type Client interface {
	Submit(ctx context.Context, audioURL, languageCode string) (*SubmitResult, error)
	Get(ctx context.Context, transcriptID string) (*Transcript, error)
	GetSubtitles(ctx context.Context, transcriptID, format string, charsPerCaption int) (*SubtitlesResult, error)
}

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

const SubtitleFormatVTT = "vtt"

type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

func ConfigFromEnv() Config {
	timeoutSec := envutil.Int("ASSEMBLYAI_TIMEOUT_SECONDS", 30)
	return Config{
		APIKey:     strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")),
		BaseURL:    strings.TrimSpace(os.Getenv("ASSEMBLYAI_BASE_URL")),
		Timeout:    time.Duration(timeoutSec) * time.Second,
		MaxRetries: envutil.Int("ASSEMBLYAI_MAX_RETRIES", 2),
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
		return nil, fmt.Errorf("missing ASSEMBLYAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.assemblyai.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &client{
		log:        log.With("client", "AssemblyAIClient"),
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type client struct {
	log        *logger.Logger
	cfg        Config
	httpClient *http.Client
}

type ResponseContext struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    *string `json:"speaker,omitempty"`
}

type SubmitResult struct {
	TranscriptID string
	Status       string
	APIContext   ResponseContext
}

type Transcript struct {
	ID         string
	Status     string // queued|processing|completed|error
	Words      []Word
	Error      string
	APIContext ResponseContext
}

type SubtitlesResult struct {
	VTT        string
	APIContext ResponseContext
}

// --- wire types ---

type submitRequest struct {
	AudioURL      string `json:"audio_url"`
	LanguageCode  string `json:"language_code,omitempty"`
	Punctuate     bool   `json:"punctuate"`
	FormatText    bool   `json:"format_text"`
	SpeakerLabels bool   `json:"speaker_labels"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Words  []Word `json:"words"`
	Error  string `json:"error"`
}

func (c *client) Submit(ctx context.Context, audioURL, languageCode string) (*SubmitResult, error) {
	if strings.TrimSpace(audioURL) == "" {
		return nil, apperr.Validation("missing_audio_url", "audio url required")
	}
	body, _ := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		LanguageCode:  languageCode,
		Punctuate:     true,
		FormatText:    true,
		SpeakerLabels: true,
	})
	raw, rc, err := c.do(ctx, "POST", "/v2/transcript", body, "application/json")
	if err != nil {
		return nil, err
	}
	var resp transcriptResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "submit_decode_failed", err)
	}
	if resp.ID == "" {
		return nil, apperr.ProviderFailure("submit_rejected", "no transcript id in response", &apperr.ProviderContext{StatusCode: rc.StatusCode, Body: rc.Body})
	}
	return &SubmitResult{TranscriptID: resp.ID, Status: resp.Status, APIContext: rc}, nil
}

func (c *client) Get(ctx context.Context, transcriptID string) (*Transcript, error) {
	if transcriptID == "" {
		return nil, apperr.Validation("missing_transcript_id", "transcript id required")
	}
	raw, rc, err := c.do(ctx, "GET", "/v2/transcript/"+transcriptID, nil, "")
	if err != nil {
		return nil, err
	}
	var resp transcriptResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "get_decode_failed", err)
	}
	return &Transcript{
		ID:         resp.ID,
		Status:     resp.Status,
		Words:      resp.Words,
		Error:      resp.Error,
		APIContext: rc,
	}, nil
}

func (c *client) GetSubtitles(ctx context.Context, transcriptID, format string, charsPerCaption int) (*SubtitlesResult, error) {
	if transcriptID == "" {
		return nil, apperr.Validation("missing_transcript_id", "transcript id required")
	}
	if format == "" {
		format = SubtitleFormatVTT
	}
	path := "/v2/transcript/" + transcriptID + "/" + format
	if charsPerCaption > 0 {
		path += "?chars_per_caption=" + strconv.Itoa(charsPerCaption)
	}
	raw, rc, err := c.do(ctx, "GET", path, nil, "")
	if err != nil {
		return nil, err
	}
	return &SubtitlesResult{VTT: string(raw), APIContext: rc}, nil
}

func (c *client) do(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, ResponseContext, error) {
	backoff := 1 * time.Second

	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ResponseContext{}, apperr.Network("context_done", ctx.Err())
		}

		raw, rc, resp, err := c.doOnce(ctx, method, path, body, contentType)
		if err == nil {
			return raw, rc, nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.cfg.MaxRetries {
			return nil, rc, err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("AssemblyAI request retrying",
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

func (c *client) doOnce(ctx context.Context, method, path string, body []byte, contentType string) ([]byte, ResponseContext, *http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, ResponseContext{}, nil, apperr.Network("build_request_failed", err)
	}
	req.Header.Set("Authorization", c.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
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
		return nil, rc, resp, apperr.ProviderFailure("http_error", fmt.Sprintf("assemblyai http %d", resp.StatusCode), &apperr.ProviderContext{StatusCode: resp.StatusCode, Body: rc.Body})
	}
	return raw, rc, resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
