package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
)

// TranscriptionService calls an OpenAI-compatible speech-to-text endpoint
// (for example a faster-whisper server) and returns timed segments.
type TranscriptionService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// TranscriptionConfig holds configuration for the ASR service.
type TranscriptionConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewTranscriptionService creates a new ASR client.
// Parameters:
//   - cfg: endpoint, credentials and model of the ASR server.
//
// Returns:
//   - *TranscriptionService: initialized client wrapper.
func NewTranscriptionService(cfg *TranscriptionConfig) *TranscriptionService {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8001/v1"
	}

	return &TranscriptionService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/audio/transcriptions",
	}
}

// GetModel returns the model name being used.
func (s *TranscriptionService) GetModel() string {
	return s.model
}

type transcriptionResponse struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Transcribe uploads the audio file and returns its segments in order.
// languageHint may be empty to let the server detect the language.
func (s *TranscriptionService) Transcribe(ctx context.Context, audioPath, languageHint string) (*domain.TranscriptionResult, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTranscription, err)
	}

	form := map[string]string{
		"model":                     s.model,
		"response_format":           "verbose_json",
		"timestamp_granularities[]": "segment",
	}
	if languageHint != "" {
		form["language"] = languageHint
	}

	start := time.Now()
	var resp transcriptionResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(form).
		SetResult(&resp).
		SetError(&resp).
		ForceContentType("application/json").
		Post(s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call ASR API: %v", domain.ErrTranscription, err)
	}
	if httpResp.IsError() {
		msg := string(httpResp.Body())
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, fmt.Errorf("%w: ASR API returned HTTP %d: %s", domain.ErrTranscription, httpResp.StatusCode(), msg)
	}

	result := &domain.TranscriptionResult{
		Language: normalizeLanguage(resp.Language),
		Segments: make([]domain.Segment, 0, len(resp.Segments)),
	}
	for i, seg := range resp.Segments {
		result.Segments = append(result.Segments, domain.Segment{
			ID:    i,
			Start: seg.Start,
			End:   seg.End,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	logger.With(logger.Fields{
		logger.FieldCount:      len(result.Segments),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Transcription finished: language=%s", result.Language)
	return result, nil
}

// languageNames maps full language names some servers report to ISO codes.
var languageNames = map[string]string{
	"english":  "en",
	"french":   "fr",
	"japanese": "ja",
	"chinese":  "zh",
	"spanish":  "es",
	"german":   "de",
	"italian":  "it",
}

func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if code, ok := languageNames[lang]; ok {
		return code
	}
	if lang == "" {
		return "en"
	}
	return lang
}
