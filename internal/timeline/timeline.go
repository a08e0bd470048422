// Package timeline places independently synthesized speech clips onto a
// single mono track anchored at their transcript start times.
package timeline

import (
	"context"
	"math"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/pcm"
)

// DefaultSampleRate is the voiceover output rate.
const DefaultSampleRate = 24000

// Clip is a decoded clip anchored at Start seconds on the output timeline.
type Clip struct {
	Start float64
	Audio pcm.Buffer
}

// Assemble builds a buffer of exactly round(totalDuration*rate) samples and
// copies every clip into it at round(start*rate).
//
// Clips at a different native rate are resampled by nearest-index selection.
// Samples past the end of the buffer are truncated. Clips are written in
// input order and later clips overwrite earlier ones where they overlap.
func Assemble(clips []Clip, totalDuration float64, rate int) []float32 {
	out := make([]float32, Length(totalDuration, rate))
	for _, c := range clips {
		place(out, c, rate)
	}
	return out
}

// Length returns the sample count of a track of the given duration.
func Length(totalDuration float64, rate int) int {
	if totalDuration <= 0 || rate <= 0 || math.IsNaN(totalDuration) {
		return 0
	}
	return int(math.Round(totalDuration * float64(rate)))
}

// Offset returns the destination index of a clip starting at start seconds.
func Offset(start float64, rate int) int {
	return int(math.Round(start * float64(rate)))
}

// place copies one clip into out and returns the number of samples written.
func place(out []float32, c Clip, rate int) int {
	samples := c.Audio.Samples
	if c.Audio.SampleRate > 0 && c.Audio.SampleRate != rate {
		samples = Resample(samples, c.Audio.SampleRate, rate)
	}
	if len(samples) == 0 || len(out) == 0 {
		return 0
	}

	// compare in float first so far-out starts never overflow the int offset
	pos := c.Start * float64(rate)
	if math.IsNaN(pos) || pos >= float64(len(out)) || pos+float64(len(samples)) <= 0 {
		return 0
	}

	off := Offset(c.Start, rate)
	if off < 0 {
		// head of the clip falls before the track start
		if -off >= len(samples) {
			return 0
		}
		samples = samples[-off:]
		off = 0
	}
	if off >= len(out) {
		return 0
	}
	return copy(out[off:], samples)
}

// Resample converts samples from rate from to rate to by picking the nearest
// source index over a linearly spaced index set. The result has
// round(len*to/from) samples; index i reads source index
// trunc(i*(len-1)/(newLen-1)). No filtering is applied.
func Resample(samples []float32, from, to int) []float32 {
	if from <= 0 || to <= 0 || from == to || len(samples) == 0 {
		return samples
	}
	newLen := int(math.Round(float64(len(samples)) * float64(to) / float64(from)))
	if newLen <= 0 {
		return nil
	}
	out := make([]float32, newLen)
	if newLen == 1 {
		out[0] = samples[0]
		return out
	}
	last := len(samples) - 1
	for i := range out {
		out[i] = samples[i*last/(newLen-1)]
	}
	return out
}

// Report summarizes a file-based assembly.
type Report struct {
	Placed  int
	Skipped int
	Samples int
}

// Assembler loads synthesized clips from disk and assembles them.
type Assembler struct {
	load func(path string) (pcm.Buffer, error)
}

// NewAssembler returns an assembler reading WAV clips.
func NewAssembler() *Assembler {
	return &Assembler{load: pcm.ReadWAV}
}

// AssembleFiles loads each segment's clip and places it on a track of
// totalDuration seconds at rate. Missing or unreadable clips are logged
// and skipped; they never fail the assembly.
func (a *Assembler) AssembleFiles(ctx context.Context, segments []domain.SynthesizedSegment, totalDuration float64, rate int) ([]float32, Report) {
	out := make([]float32, Length(totalDuration, rate))
	report := Report{Samples: len(out)}

	for _, seg := range segments {
		if seg.AudioPath == "" {
			report.Skipped++
			continue
		}
		buf, err := a.load(seg.AudioPath)
		if err != nil {
			logger.With(logger.Fields{logger.FieldSegmentID: seg.ID}).
				Warn(ctx, "Skipping unreadable clip %s: %v", seg.AudioPath, err)
			report.Skipped++
			continue
		}
		place(out, Clip{Start: seg.Start, Audio: buf}, rate)
		report.Placed++
	}

	logger.With(logger.Fields{
		logger.FieldCount: report.Placed,
		logger.FieldSize:  report.Samples,
	}).Info(ctx, "Assembled timeline: placed=%d skipped=%d", report.Placed, report.Skipped)
	return out, report
}
