// Package media wraps the ffmpeg and ffprobe binaries.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
)

// CommandResult is the captured output of one process run.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner abstracts process execution so ffmpeg calls can be faked in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// ExecRunner executes commands via os/exec.
type ExecRunner struct{}

// Run executes one command and captures stdout, stderr and the exit code.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}
	return result, nil
}

// Config holds binary locations and audio options.
type Config struct {
	FFmpegPath        string
	FFprobePath       string
	ExtractSampleRate int

	// KeepOriginalAudio mixes the source track under the voiceover at
	// OriginalVolume instead of replacing it.
	KeepOriginalAudio bool
	OriginalVolume    float64
}

// FFmpeg implements the media toolkit used by the pipeline.
type FFmpeg struct {
	cfg    Config
	runner Runner
}

// NewFFmpeg creates a toolkit running real binaries.
func NewFFmpeg(cfg Config) *FFmpeg {
	return NewFFmpegWithRunner(cfg, ExecRunner{})
}

// NewFFmpegWithRunner creates a toolkit with a custom runner.
func NewFFmpegWithRunner(cfg Config, runner Runner) *FFmpeg {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.ExtractSampleRate <= 0 {
		cfg.ExtractSampleRate = 16000
	}
	if cfg.OriginalVolume <= 0 {
		cfg.OriginalVolume = 0.1
	}
	return &FFmpeg{cfg: cfg, runner: runner}
}

// Check verifies both binaries can be executed.
func (f *FFmpeg) Check(ctx context.Context) error {
	for _, bin := range []string{f.cfg.FFmpegPath, f.cfg.FFprobePath} {
		if _, err := f.runner.Run(ctx, bin, "-version"); err != nil {
			return fmt.Errorf("%w: %s is not available: %v", domain.ErrMedia, bin, err)
		}
	}
	return nil
}

// ExtractAudio writes the audio track of videoPath as mono 16-bit WAV.
func (f *FFmpeg) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMedia, err)
	}
	return f.ffmpeg(ctx, "extract audio",
		"-y", "-i", videoPath,
		"-vn", "-acodec", "pcm_s16le",
		"-ac", "1", "-ar", strconv.Itoa(f.cfg.ExtractSampleRate),
		outPath,
	)
}

// ReplaceAudio muxes videoPath's video stream with audioPath into outPath.
// The video stream is copied and the audio encoded as AAC.
func (f *FFmpeg) ReplaceAudio(ctx context.Context, videoPath, audioPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrMedia, err)
	}
	args := []string{"-y", "-i", videoPath, "-i", audioPath}
	if f.cfg.KeepOriginalAudio {
		filter := fmt.Sprintf("[0:a]volume=%s[orig];[orig][1:a]amix=inputs=2[mixed]",
			strconv.FormatFloat(f.cfg.OriginalVolume, 'f', -1, 64))
		args = append(args, "-filter_complex", filter, "-map", "0:v:0", "-map", "[mixed]")
	} else {
		args = append(args, "-map", "0:v:0", "-map", "1:a:0")
	}
	args = append(args, "-c:v", "copy", "-c:a", "aac", outPath)
	return f.ffmpeg(ctx, "replace audio", args...)
}

// Info is the subset of ffprobe output the service needs.
type Info struct {
	Duration   float64
	Size       int64
	Format     string
	VideoCodec string
	Width      int
	Height     int
	AudioCodec string
	SampleRate int
	Channels   int
}

type probeOutput struct {
	Format struct {
		Duration   string `json:"duration"`
		Size       string `json:"size"`
		FormatName string `json:"format_name"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// Probe reads container and stream metadata.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Info, error) {
	res, err := f.runner.Run(ctx, f.cfg.FFprobePath,
		"-v", "error", "-show_format", "-show_streams", "-of", "json", path)
	if err != nil {
		return nil, fmt.Errorf("%w: ffprobe %s: %v: %s", domain.ErrMedia, path, err, strings.TrimSpace(res.Stderr))
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return nil, fmt.Errorf("%w: parse ffprobe output: %v", domain.ErrMedia, err)
	}

	info := &Info{Format: out.Format.FormatName}
	if out.Format.Duration != "" {
		info.Duration, err = strconv.ParseFloat(out.Format.Duration, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad duration %q", domain.ErrMedia, out.Format.Duration)
		}
	}
	info.Size, _ = strconv.ParseInt(out.Format.Size, 10, 64)
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if info.VideoCodec == "" {
				info.VideoCodec, info.Width, info.Height = s.CodecName, s.Width, s.Height
			}
		case "audio":
			if info.AudioCodec == "" {
				info.AudioCodec, info.Channels = s.CodecName, s.Channels
				info.SampleRate, _ = strconv.Atoi(s.SampleRate)
			}
		}
	}
	return info, nil
}

// ProbeDuration returns the container duration in seconds.
func (f *FFmpeg) ProbeDuration(ctx context.Context, path string) (float64, error) {
	info, err := f.Probe(ctx, path)
	if err != nil {
		return 0, err
	}
	if info.Duration <= 0 {
		return 0, fmt.Errorf("%w: %s has no duration", domain.ErrMedia, path)
	}
	return info.Duration, nil
}

func (f *FFmpeg) ffmpeg(ctx context.Context, op string, args ...string) error {
	start := time.Now()
	res, err := f.runner.Run(ctx, f.cfg.FFmpegPath, args...)
	if err != nil {
		return fmt.Errorf("%w: %s (exit=%d): %s", domain.ErrMedia, op, res.ExitCode, lastLine(res.Stderr))
	}
	logger.With(logger.Fields{}).WithDuration(time.Since(start).Milliseconds()).
		Debug(ctx, "ffmpeg %s finished", op)
	return nil
}

// lastLine keeps the tail of ffmpeg's stderr, which holds the actual error.
func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}
