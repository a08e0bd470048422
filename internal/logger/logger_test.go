package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsReachOutput(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetJobID(ctx, "job-1")
	ctx = SetStage(ctx, "transcribe")

	With(Fields{FieldCount: 3}).Info(ctx, "stage %s", "done")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	checks := map[string]interface{}{
		"service":  "test",
		FieldJobID: "job-1",
		FieldStage: "transcribe",
		"message":  "stage done",
		FieldCount: float64(3),
	}
	for k, want := range checks {
		if line[k] != want {
			t.Errorf("%s = %v, want %v", k, line[k], want)
		}
	}
	if GetJobID(ctx) != "job-1" {
		t.Errorf("GetJobID = %q", GetJobID(ctx))
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != GetDefault() {
		t.Error("expected default logger for bare context")
	}
	SetDefaultLogger(nil)
	if GetDefault() == nil {
		t.Error("SetDefaultLogger(nil) must not clear the default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_MAX_SIZE", "not-a-number")
	t.Setenv("LOG_COMPRESS", "false")

	cfg := LoadFromEnv()
	if cfg.Level != "debug" {
		t.Errorf("Level = %q, want debug", cfg.Level)
	}
	if cfg.MaxSize != 100 {
		t.Errorf("MaxSize = %d, want fallback 100", cfg.MaxSize)
	}
	if cfg.Compress {
		t.Error("Compress = true, want false")
	}
	if cfg.ServiceName != "autodub" {
		t.Errorf("ServiceName = %q", cfg.ServiceName)
	}
}

func TestEntryHelpersAndRequestFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(&Config{Level: "info", Format: "json", Output: &buf, ServiceName: "test"})

	ctx := base.WithContext(context.Background())
	ctx = SetRequestID(ctx, "req-9")
	ctx = SetComponent(ctx, "snapshotter")

	With(Fields{}).WithDuration(42).WithCount(7).WithStatus("completed").Info(ctx, "saved")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	checks := map[string]interface{}{
		FieldRequestID:  "req-9",
		FieldComponent:  "snapshotter",
		FieldDurationMs: float64(42),
		FieldCount:      float64(7),
		FieldStatus:     "completed",
	}
	for k, want := range checks {
		if line[k] != want {
			t.Errorf("%s = %v, want %v", k, line[k], want)
		}
	}
	if got := GetRequestID(ctx); got != "req-9" {
		t.Errorf("GetRequestID = %q, want req-9", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID on bare context = %q, want empty", got)
	}
}
