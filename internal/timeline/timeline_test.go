package timeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/pcm"
)

func ramp(n int, base float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = base + float32(i)/float32(n*10)
	}
	return s
}

// TestAssembleDeterministicPlacement verifies clips at the output rate are copied verbatim
// and everything else stays silent.
func TestAssembleDeterministicPlacement(t *testing.T) {
	const rate = 100
	a := ramp(rate, 0.1)
	b := ramp(rate, -0.5)

	out := Assemble([]Clip{
		{Start: 1.0, Audio: pcm.Buffer{Samples: a, SampleRate: rate}},
		{Start: 5.0, Audio: pcm.Buffer{Samples: b, SampleRate: rate}},
	}, 8.0, rate)

	if len(out) != 800 {
		t.Fatalf("len = %d, want 800", len(out))
	}
	for i, v := range out {
		switch {
		case i >= 100 && i < 200:
			if v != a[i-100] {
				t.Fatalf("out[%d] = %v, want A[%d] = %v", i, v, i-100, a[i-100])
			}
		case i >= 500 && i < 600:
			if v != b[i-500] {
				t.Fatalf("out[%d] = %v, want B[%d] = %v", i, v, i-500, b[i-500])
			}
		default:
			if v != 0 {
				t.Fatalf("out[%d] = %v, want silence", i, v)
			}
		}
	}

	again := Assemble([]Clip{
		{Start: 1.0, Audio: pcm.Buffer{Samples: a, SampleRate: rate}},
		{Start: 5.0, Audio: pcm.Buffer{Samples: b, SampleRate: rate}},
	}, 8.0, rate)
	for i := range out {
		if out[i] != again[i] {
			t.Fatalf("assembly is not deterministic at %d", i)
		}
	}
}

func TestResampleLengthAndOffset(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		start    float64
	}{
		{"upsample", 16000, 24000, 0.5},
		{"downsample", 44100, 24000, 1.25},
		{"odd rates", 22050, 24000, 0.333},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clip := make([]float32, tt.from)
			for i := range clip {
				clip[i] = 1
			}
			rs := Resample(clip, tt.from, tt.to)
			if len(rs) != tt.to {
				t.Fatalf("resampled len = %d, want %d", len(rs), tt.to)
			}

			out := Assemble([]Clip{{Start: tt.start, Audio: pcm.Buffer{Samples: clip, SampleRate: tt.from}}}, 4, tt.to)
			off := Offset(tt.start, tt.to)
			if off > 0 && out[off-1] != 0 {
				t.Errorf("sample before offset %d is not silent", off)
			}
			if out[off] != 1 || out[off+tt.to-1] != 1 {
				t.Errorf("clip not placed at offset %d", off)
			}
			if off+tt.to < len(out) && out[off+tt.to] != 0 {
				t.Errorf("sample after clip is not silent")
			}
		})
	}
}

func TestResampleNearestIndex(t *testing.T) {
	src := []float32{0, 1, 2, 3}
	got := Resample(src, 4, 8)
	// indices trunc(i*3/7) for i in 0..7
	want := []float32{0, 0, 0, 1, 1, 2, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if one := Resample([]float32{7, 8, 9}, 30, 10); len(one) != 1 || one[0] != 7 {
		t.Errorf("single-sample resample = %v", one)
	}
}

// TestAssembleOverlapLastWriteWins verifies the later clip owns the overlap region.
func TestAssembleOverlapLastWriteWins(t *testing.T) {
	const rate = 10
	first := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	second := []float32{2, 2, 2, 2, 2, 2, 2, 2, 2, 2}

	out := Assemble([]Clip{
		{Start: 0.0, Audio: pcm.Buffer{Samples: first, SampleRate: rate}},
		{Start: 0.5, Audio: pcm.Buffer{Samples: second, SampleRate: rate}},
	}, 2, rate)

	for i := 0; i < 5; i++ {
		if out[i] != 1 {
			t.Errorf("out[%d] = %v, want 1", i, out[i])
		}
	}
	for i := 5; i < 15; i++ {
		if out[i] != 2 {
			t.Errorf("out[%d] = %v, want 2", i, out[i])
		}
	}
}

func TestAssembleEdgeCases(t *testing.T) {
	clip := pcm.Buffer{Samples: []float32{1, 1, 1, 1}, SampleRate: 10}
	tests := []struct {
		name    string
		clips   []Clip
		total   float64
		wantLen int
		wantSum float32
	}{
		{"no clips", nil, 1, 10, 0},
		{"zero duration", []Clip{{Start: 0, Audio: clip}}, 0, 0, 0},
		{"negative duration", []Clip{{Start: 0, Audio: clip}}, -3, 0, 0},
		{"truncated at end", []Clip{{Start: 0.8, Audio: clip}}, 1, 10, 2},
		{"starts at end", []Clip{{Start: 1.0, Audio: clip}}, 1, 10, 0},
		{"starts after end", []Clip{{Start: 9, Audio: clip}}, 1, 10, 0},
		{"negative start keeps tail", []Clip{{Start: -0.1, Audio: clip}}, 1, 10, 3},
		{"empty clip", []Clip{{Start: 0, Audio: pcm.Buffer{SampleRate: 10}}}, 1, 10, 0},
		{"negative start beyond clip", []Clip{{Start: -0.4, Audio: clip}}, 1, 10, 0},
		{"huge start", []Clip{{Start: 1e19, Audio: clip}}, 1, 10, 0},
		{"huge negative start", []Clip{{Start: -1e19, Audio: clip}}, 1, 10, 0},
		{"start beyond float range of int", []Clip{{Start: 1e300, Audio: clip}}, 1, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Assemble(tt.clips, tt.total, 10)
			if len(out) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(out), tt.wantLen)
			}
			var sum float32
			for _, v := range out {
				sum += v
			}
			if sum != tt.wantSum {
				t.Errorf("sum = %v, want %v", sum, tt.wantSum)
			}
		})
	}
}

func TestAssembleFilesSkipsMissing(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "segment_0000.wav")
	if err := pcm.WriteWAV(good, []float32{0.5, 0.5, 0.5}, 10); err != nil {
		t.Fatal(err)
	}

	segs := []domain.SynthesizedSegment{
		{ID: 0, Start: 0.2, End: 0.5, AudioPath: good},
		{ID: 1, Start: 0.6, End: 0.9, AudioPath: filepath.Join(dir, "missing.wav")},
		{ID: 2, Start: 0.7, End: 0.8},
	}
	out, report := NewAssembler().AssembleFiles(context.Background(), segs, 1, 10)

	if report.Placed != 1 || report.Skipped != 2 {
		t.Errorf("report = %+v, want placed=1 skipped=2", report)
	}
	if len(out) != 10 || report.Samples != 10 {
		t.Fatalf("len = %d, samples = %d", len(out), report.Samples)
	}
	for i, v := range out {
		inClip := i >= 2 && i < 5
		if inClip && (v < 0.49 || v > 0.51) {
			t.Errorf("out[%d] = %v, want ~0.5", i, v)
		}
		if !inClip && v != 0 {
			t.Errorf("out[%d] = %v, want 0", i, v)
		}
	}
}
