package synthesis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/pcm"
)

type fakeTTS struct {
	fail  map[string]bool
	calls []string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voice, language string, speed float64) (pcm.Buffer, error) {
	f.calls = append(f.calls, text)
	if f.fail[text] {
		return pcm.Buffer{}, errors.New("tts exploded")
	}
	if text == "silent" {
		return pcm.Buffer{SampleRate: 24000}, nil
	}
	return pcm.Buffer{Samples: []float32{0.1, 0.2, 0.3}, SampleRate: 24000}, nil
}

// TestRunPartialFailure verifies a failing segment is dropped while the rest are kept.
func TestRunPartialFailure(t *testing.T) {
	dir := t.TempDir()
	tts := &fakeTTS{fail: map[string]bool{"two": true}}
	segs := []domain.Segment{
		{ID: 0, Start: 0, End: 1, Text: "one"},
		{ID: 1, Start: 1, End: 2, Text: "two"},
		{ID: 2, Start: 2, End: 3, Text: "three"},
		{ID: 3, Start: 3, End: 4, Text: "four"},
		{ID: 4, Start: 4, End: 5, Text: "five"},
	}

	var seen []int
	res, err := NewDriver(tts).Run(context.Background(), Request{
		Segments:  segs,
		Voice:     "af_heart",
		Language:  "a",
		Speed:     1,
		OutputDir: dir,
		OnSegment: func(position, total int) {
			if total != 5 {
				t.Errorf("total = %d, want 5", total)
			}
			seen = append(seen, position)
		},
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Synthesized() != 4 || res.Failed() != 1 || res.Skipped() != 0 {
		t.Errorf("counts = %d/%d/%d", res.Synthesized(), res.Failed(), res.Skipped())
	}
	if len(seen) != 5 {
		t.Errorf("OnSegment called %d times, want 5", len(seen))
	}

	clips := res.Clips()
	wantIDs := []int{0, 2, 3, 4}
	if len(clips) != len(wantIDs) {
		t.Fatalf("len(Clips()) = %d, want %d", len(clips), len(wantIDs))
	}
	for i, c := range clips {
		if c.ID != wantIDs[i] {
			t.Errorf("clip %d id = %d, want %d", i, c.ID, wantIDs[i])
		}
		if _, err := os.Stat(c.AudioPath); err != nil {
			t.Errorf("clip file missing: %v", err)
		}
	}
	if filepath.Base(clips[1].AudioPath) != "segment_0002.wav" {
		t.Errorf("clip path = %s, want index-based name", clips[1].AudioPath)
	}
	for _, o := range res.Outcomes {
		if o.Kind == OutcomeFailed && o.Err == nil {
			t.Errorf("failed outcome %d has no error", o.Position)
		}
	}
}

func TestRunSkipsBlankAndRejectsEmptyAudio(t *testing.T) {
	tts := &fakeTTS{}
	segs := []domain.Segment{
		{ID: 0, Start: 0, End: 1, Text: "   "},
		{ID: 1, Start: 1, End: 2, Text: "silent"},
		{ID: 2, Start: 2, End: 3, Text: "  hello  "},
	}
	res, err := NewDriver(tts).Run(context.Background(), Request{Segments: segs, OutputDir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Skipped() != 1 || res.Failed() != 1 || res.Synthesized() != 1 {
		t.Fatalf("counts = s%d f%d ok%d", res.Skipped(), res.Failed(), res.Synthesized())
	}
	if !errors.Is(res.Outcomes[1].Err, domain.ErrSynthesis) {
		t.Errorf("empty audio error = %v, want ErrSynthesis", res.Outcomes[1].Err)
	}
	if got := strings.Join(tts.calls, ","); got != "silent,hello" {
		t.Errorf("tts calls = %q, blank text must not reach TTS", got)
	}
	if res.Clips()[0].Text != "hello" {
		t.Errorf("clip text = %q, want trimmed", res.Clips()[0].Text)
	}
}

func TestRunBadOutputDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDriver(&fakeTTS{}).Run(context.Background(), Request{OutputDir: filepath.Join(file, "sub")}); err == nil {
		t.Fatal("expected error when output dir cannot be created")
	}
}
