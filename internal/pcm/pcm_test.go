package pcm

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "clip.wav")
	in := []float32{0, 0.5, -0.5, 1, -1, 0.25}

	if err := WriteWAV(path, in, 24000); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	out, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV() error = %v", err)
	}
	if out.SampleRate != 24000 {
		t.Errorf("SampleRate = %d, want 24000", out.SampleRate)
	}
	if len(out.Samples) != len(in) {
		t.Fatalf("len = %d, want %d", len(out.Samples), len(in))
	}
	for i := range in {
		if math.Abs(float64(out.Samples[i]-in[i])) > 1.0/(1<<14) {
			t.Errorf("sample %d = %v, want ~%v", i, out.Samples[i], in[i])
		}
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	tests := []struct {
		in   float32
		want int
	}{
		{2, math.MaxInt16},
		{-3, -math.MaxInt16},
		{float32(math.NaN()), 0},
		{0, 0},
	}
	for _, tt := range tests {
		if got := floatToInt16(tt.in); got != tt.want {
			t.Errorf("floatToInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestReadWAVRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.wav")
	if err := os.WriteFile(path, []byte("definitely not a riff header"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadWAV(path); err == nil {
		t.Fatal("expected error for non-wav input")
	}
	if _, err := ReadWAV(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBufferDuration(t *testing.T) {
	b := Buffer{Samples: make([]float32, 12000), SampleRate: 24000}
	if d := b.Duration(); d != 0.5 {
		t.Errorf("Duration() = %v, want 0.5", d)
	}
	if (Buffer{}).Duration() != 0 {
		t.Error("zero buffer should have zero duration")
	}
}
