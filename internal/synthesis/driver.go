// Package synthesis turns transcript segments into per-segment speech clips.
package synthesis

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/pcm"
)

// Synthesizer is the text-to-speech collaborator.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice, language string, speed float64) (pcm.Buffer, error)
}

// OutcomeKind classifies what happened to one segment.
type OutcomeKind string

const (
	OutcomeSynthesized OutcomeKind = "synthesized"
	OutcomeSkipped     OutcomeKind = "skipped"
	OutcomeFailed      OutcomeKind = "failed"
)

// Outcome is the per-segment result. Clip is set only when Kind is synthesized.
type Outcome struct {
	Position int
	Segment  domain.Segment
	Kind     OutcomeKind
	Clip     *domain.SynthesizedSegment
	Err      error
}

// Result holds one outcome per input segment, in input order.
type Result struct {
	Outcomes []Outcome
}

// Clips returns the synthesized segments in input order.
func (r *Result) Clips() []domain.SynthesizedSegment {
	clips := make([]domain.SynthesizedSegment, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Kind == OutcomeSynthesized && o.Clip != nil {
			clips = append(clips, *o.Clip)
		}
	}
	return clips
}

func (r *Result) count(kind OutcomeKind) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

func (r *Result) Synthesized() int { return r.count(OutcomeSynthesized) }
func (r *Result) Skipped() int     { return r.count(OutcomeSkipped) }
func (r *Result) Failed() int      { return r.count(OutcomeFailed) }

// Request describes one synthesis run.
type Request struct {
	Segments  []domain.Segment
	Voice     string
	Language  string
	Speed     float64
	OutputDir string

	// OnSegment is called before each segment is processed with its
	// zero-based position and the total segment count.
	OnSegment func(position, total int)
}

// Driver synthesizes segments one at a time, isolating per-segment failures.
type Driver struct {
	tts   Synthesizer
	write func(path string, samples []float32, rate int) error
}

// NewDriver returns a driver that writes clips as WAV files.
func NewDriver(tts Synthesizer) *Driver {
	return &Driver{tts: tts, write: pcm.WriteWAV}
}

// ClipPath returns the file a segment at position is written to.
func ClipPath(dir string, position int) string {
	return filepath.Join(dir, fmt.Sprintf("segment_%04d.wav", position))
}

// Run synthesizes every non-empty segment. A failing segment is logged and
// recorded; the remaining segments still run. The returned error is only
// set when the output directory cannot be prepared.
func (d *Driver) Run(ctx context.Context, req Request) (*Result, error) {
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create segment dir: %w", err)
	}

	total := len(req.Segments)
	result := &Result{Outcomes: make([]Outcome, 0, total)}
	start := time.Now()

	for i, seg := range req.Segments {
		if req.OnSegment != nil {
			req.OnSegment(i, total)
		}
		out := Outcome{Position: i, Segment: seg}

		text := strings.TrimSpace(seg.Text)
		if text == "" {
			out.Kind = OutcomeSkipped
			result.Outcomes = append(result.Outcomes, out)
			continue
		}

		clip, err := d.synthesizeOne(ctx, i, seg, text, req)
		if err != nil {
			logger.With(logger.Fields{logger.FieldSegmentID: seg.ID}).
				Warn(ctx, "Failed to generate segment %d: %v", i, err)
			out.Kind = OutcomeFailed
			out.Err = err
		} else {
			out.Kind = OutcomeSynthesized
			out.Clip = clip
		}
		result.Outcomes = append(result.Outcomes, out)
	}

	logger.With(logger.Fields{logger.FieldSize: total}).
		WithCount(result.Synthesized()).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Segment synthesis finished: total=%d synthesized=%d skipped=%d failed=%d",
			total, result.Synthesized(), result.Skipped(), result.Failed())
	return result, nil
}

func (d *Driver) synthesizeOne(ctx context.Context, position int, seg domain.Segment, text string, req Request) (*domain.SynthesizedSegment, error) {
	buf, err := d.tts.Synthesize(ctx, text, req.Voice, req.Language, req.Speed)
	if err != nil {
		return nil, err
	}
	if buf.Empty() || buf.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: empty audio for segment %d", domain.ErrSynthesis, position)
	}
	path := ClipPath(req.OutputDir, position)
	if err := d.write(path, buf.Samples, buf.SampleRate); err != nil {
		return nil, fmt.Errorf("write clip: %w", err)
	}
	return &domain.SynthesizedSegment{
		ID:        seg.ID,
		Start:     seg.Start,
		End:       seg.End,
		AudioPath: path,
		Text:      text,
	}, nil
}
