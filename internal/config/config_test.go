package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes() != 500*1024*1024 {
		t.Errorf("MaxUploadBytes() = %d", cfg.Server.MaxUploadBytes())
	}
	if cfg.Voiceover.SampleRate != 24000 {
		t.Errorf("Voiceover.SampleRate = %d, want 24000", cfg.Voiceover.SampleRate)
	}
	if cfg.Jobs.SnapshotInterval != 30*time.Second {
		t.Errorf("Jobs.SnapshotInterval = %v", cfg.Jobs.SnapshotInterval)
	}
	if len(cfg.Languages) != 5 {
		t.Errorf("len(Languages) = %d, want default catalog", len(cfg.Languages))
	}
	if len(cfg.Server.AllowedExtensions) != 5 {
		t.Errorf("AllowedExtensions = %v", cfg.Server.AllowedExtensions)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TTS_API_KEY", "secret")
	t.Setenv("JOBS_WORKERS", "7")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("jobs:\n  workers: 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.TTS.APIKey != "secret" {
		t.Errorf("TTS.APIKey = %q", cfg.TTS.APIKey)
	}
	if cfg.Jobs.Workers != 7 {
		t.Errorf("Jobs.Workers = %d, want env override 7", cfg.Jobs.Workers)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("jobs:\n  snapshot_backend: redis\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestDatabaseDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "dub", SSLMode: "disable"}
	if got, want := pg.DSN(), "postgres://u:p%40ss@db:5432/dub?sslmode=disable"; got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
	lite := DatabaseConfig{Driver: "sqlite", Path: "./data/x.db"}
	if lite.DSN() != "./data/x.db" {
		t.Errorf("sqlite DSN() = %q", lite.DSN())
	}
}

func TestDescribeVoice(t *testing.T) {
	tests := []struct {
		id        string
		name, sex string
	}{
		{"af_heart", "Heart", "Female"},
		{"am_michael", "Michael", "Male"},
		{"zf_xiaoxiao", "Xiaoxiao", "Female"},
		{"bm_george", "George", "Male"},
	}
	for _, tt := range tests {
		got := DescribeVoice(tt.id)
		if got.Name != tt.name || got.Gender != tt.sex || got.ID != tt.id {
			t.Errorf("DescribeVoice(%q) = %+v", tt.id, got)
		}
	}
}

func TestLanguageLookup(t *testing.T) {
	cfg := &Config{Languages: DefaultLanguages()}
	fr, ok := cfg.Language("f")
	if !ok || fr.EngineLanguage() != "fr-fr" || !fr.HasVoice("ff_siwis") {
		t.Fatalf("Language(f) = %+v, %v", fr, ok)
	}
	if fr.HasVoice("af_heart") {
		t.Error("ff catalog must not contain af_heart")
	}
	if _, ok := cfg.Language("x"); ok {
		t.Error("unexpected language x")
	}
}
