package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifestResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "segments.json")
	body := `[
		{"id": 0, "start": 0.0, "end": 1.2, "audio_path": "segments/segment_0000.wav", "text": "Hello"},
		{"id": 1, "start": 1.5, "end": 2.75, "audio_path": "/abs/segment_0001.wav", "text": "world"}
	]`
	if err := os.WriteFile(manifest, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	segs, err := loadManifest(manifest)
	if err != nil {
		t.Fatalf("loadManifest() error = %v", err)
	}
	if len(segs) != 2 {
		t.Fatalf("len = %d, want 2", len(segs))
	}
	if want := filepath.Join(dir, "segments", "segment_0000.wav"); segs[0].AudioPath != want {
		t.Errorf("AudioPath[0] = %q, want %q", segs[0].AudioPath, want)
	}
	if segs[1].AudioPath != "/abs/segment_0001.wav" {
		t.Errorf("AudioPath[1] = %q", segs[1].AudioPath)
	}
	if got := lastEnd(segs); got != 2.75 {
		t.Errorf("lastEnd() = %v, want 2.75", got)
	}
}

func TestLoadManifestRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := loadManifest(path); err == nil {
		t.Fatal("expected error")
	}
}
