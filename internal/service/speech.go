package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/pcm"
)

// SpeechService calls an OpenAI-compatible text-to-speech endpoint
// (for example Kokoro-FastAPI) and decodes the WAV it returns.
type SpeechService struct {
	client   *resty.Client
	model    string
	endpoint string
}

// SpeechConfig holds configuration for the TTS service.
type SpeechConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewSpeechService creates a new TTS client.
func NewSpeechService(cfg *SpeechConfig) *SpeechService {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:8880/v1"
	}

	return &SpeechService{
		client:   client,
		model:    cfg.Model,
		endpoint: baseURL + "/audio/speech",
	}
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
	LangCode       string  `json:"lang_code,omitempty"`
}

// Synthesize renders text with the given voice and returns mono PCM.
// An empty or undecodable response is a synthesis error.
func (s *SpeechService) Synthesize(ctx context.Context, text, voice, language string, speed float64) (pcm.Buffer, error) {
	if speed <= 0 {
		speed = 1.0
	}
	req := speechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          voice,
		Speed:          speed,
		ResponseFormat: "wav",
		LangCode:       language,
	}

	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(s.endpoint)
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("%w: failed to call TTS API: %v", domain.ErrSynthesis, err)
	}
	if httpResp.IsError() {
		return pcm.Buffer{}, fmt.Errorf("%w: TTS API returned HTTP %d: %s", domain.ErrSynthesis, httpResp.StatusCode(), string(httpResp.Body()))
	}

	body := httpResp.Body()
	if len(body) == 0 {
		return pcm.Buffer{}, fmt.Errorf("%w: empty TTS response", domain.ErrSynthesis)
	}
	buf, err := pcm.DecodeWAV(bytes.NewReader(body))
	if err != nil {
		return pcm.Buffer{}, fmt.Errorf("%w: %v", domain.ErrSynthesis, err)
	}
	if buf.Empty() {
		return pcm.Buffer{}, fmt.Errorf("%w: TTS returned no samples", domain.ErrSynthesis)
	}
	return buf, nil
}
