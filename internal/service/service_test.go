package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/pcm"
)

func TestTranscribe(t *testing.T) {
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/transcriptions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm() error = %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		gotForm = map[string]string{
			"model":           r.FormValue("model"),
			"response_format": r.FormValue("response_format"),
			"language":        r.FormValue("language"),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"language": "French",
			"text":     "Bonjour le monde",
			"segments": []map[string]interface{}{
				{"id": 0, "start": 0.0, "end": 1.5, "text": " Bonjour"},
				{"id": 1, "start": 1.5, "end": 2.0, "text": " le monde "},
			},
		})
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := NewTranscriptionService(&TranscriptionConfig{BaseURL: srv.URL + "/v1/", Model: "whisper-1"})
	res, err := svc.Transcribe(context.Background(), audio, "fr")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Language != "fr" {
		t.Errorf("Language = %q, want fr", res.Language)
	}
	if len(res.Segments) != 2 || res.Segments[0].Text != "Bonjour" || res.Segments[1].End != 2.0 {
		t.Errorf("Segments = %+v", res.Segments)
	}
	if gotForm["model"] != "whisper-1" || gotForm["response_format"] != "verbose_json" || gotForm["language"] != "fr" {
		t.Errorf("form = %v", gotForm)
	}
}

func TestTranscribeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"model not loaded"}}`)
	}))
	defer srv.Close()

	svc := NewTranscriptionService(&TranscriptionConfig{BaseURL: srv.URL})
	audio := filepath.Join(t.TempDir(), "audio.wav")
	os.WriteFile(audio, []byte("RIFF"), 0o644)

	if _, err := svc.Transcribe(context.Background(), audio, ""); !errors.Is(err, domain.ErrTranscription) {
		t.Errorf("server error: got %v, want ErrTranscription", err)
	}
	if _, err := svc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "none.wav"), ""); !errors.Is(err, domain.ErrTranscription) {
		t.Errorf("missing file: got %v, want ErrTranscription", err)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{"": "en", "English": "en", "ja": "ja", " ZH ": "zh"}
	for in, want := range tests {
		if got := normalizeLanguage(in); got != want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func wavBytes(t *testing.T, samples []float32, rate int) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tts.wav")
	if err := pcm.WriteWAV(path, samples, rate); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestSynthesize(t *testing.T) {
	payload := wavBytes(t, []float32{0, 0.5, -0.5, 0.25}, 24000)
	var got speechRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/audio/speech" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/wav")
		w.Write(payload)
	}))
	defer srv.Close()

	svc := NewSpeechService(&SpeechConfig{BaseURL: srv.URL + "/v1", Model: "kokoro"})
	buf, err := svc.Synthesize(context.Background(), "Bonjour", "ff_siwis", "fr-fr", 1.25)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if buf.SampleRate != 24000 || len(buf.Samples) != 4 {
		t.Errorf("buffer = %d samples @ %d", len(buf.Samples), buf.SampleRate)
	}
	if got.Input != "Bonjour" || got.Voice != "ff_siwis" || got.LangCode != "fr-fr" || got.Speed != 1.25 || got.ResponseFormat != "wav" {
		t.Errorf("request = %+v", got)
	}
}

func TestSynthesizeRejectsBadAudio(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   []byte
	}{
		{"http error", http.StatusBadGateway, []byte("upstream down")},
		{"empty body", http.StatusOK, nil},
		{"not wav", http.StatusOK, []byte("mp3 bytes here, not riff")},
		{"no samples", http.StatusOK, wavBytes(t, nil, 24000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write(tt.body)
			}))
			defer srv.Close()

			svc := NewSpeechService(&SpeechConfig{BaseURL: srv.URL})
			if _, err := svc.Synthesize(context.Background(), "hi", "af_heart", "en-us", 1); !errors.Is(err, domain.ErrSynthesis) {
				t.Errorf("Synthesize() error = %v, want ErrSynthesis", err)
			}
		})
	}
}
