// Package pcm holds mono float32 audio buffers and their WAV encoding.
package pcm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a stream is not a decodable PCM WAV file.
var ErrInvalidWAV = errors.New("invalid wav stream")

// Buffer is a mono clip of float32 samples in [-1, 1] at a native sample rate.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Empty reports whether the buffer has no samples.
func (b Buffer) Empty() bool {
	return len(b.Samples) == 0
}

// DecodeWAV reads an integer PCM WAV stream and downmixes it to mono.
func DecodeWAV(r io.ReadSeeker) (Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Buffer{}, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return Buffer{}, ErrInvalidWAV
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	depth := buf.SourceBitDepth
	if depth == 0 {
		depth = int(dec.BitDepth)
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += intToFloat(buf.Data[i*channels+c], depth)
		}
		samples[i] = float32(sum / float64(channels))
	}
	return Buffer{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// ReadWAV decodes the WAV file at path.
func ReadWAV(path string) (Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return Buffer{}, err
	}
	defer f.Close()

	b, err := DecodeWAV(f)
	if err != nil {
		return Buffer{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return b, nil
}

// EncodeWAV writes samples as 16-bit mono PCM.
func EncodeWAV(w io.WriteSeeker, samples []float32, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	format := &audio.Format{SampleRate: sampleRate, NumChannels: 1}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = floatToInt16(s)
	}
	if err := enc.Write(&audio.IntBuffer{Data: data, Format: format, SourceBitDepth: 16}); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// WriteWAV writes samples to path, creating parent directories.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, samples, sampleRate); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func intToFloat(v, depth int) float64 {
	switch depth {
	case 8:
		// 8-bit WAV is unsigned
		return float64(v-128) / 128
	case 24:
		return float64(v) / (1 << 23)
	case 32:
		return float64(v) / (1 << 31)
	default:
		return float64(v) / (1 << 15)
	}
}

func floatToInt16(s float32) int {
	v := float64(s)
	if math.IsNaN(v) {
		return 0
	}
	v = math.Max(-1, math.Min(1, v))
	return int(math.Round(v * math.MaxInt16))
}
