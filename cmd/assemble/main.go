// Command assemble builds a voiceover track from already synthesized
// segment clips, the same way the voice generation stage does.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/media"
	"github.com/timmy/autodub/internal/pcm"
	"github.com/timmy/autodub/internal/timeline"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "autodub-assemble",
	})
	logger.SetDefaultLogger(appLogger)

	manifestPath := flag.String("manifest", "", "JSON file listing segments (id, start, end, audio_path, text)")
	duration := flag.Float64("duration", 0, "Track length in seconds; defaults to the video length or the last segment end")
	videoPath := flag.String("video", "", "Video to probe for the track length")
	ffprobe := flag.String("ffprobe", "ffprobe", "Path to ffprobe")
	rate := flag.Int("rate", timeline.DefaultSampleRate, "Output sample rate")
	outPath := flag.String("out", "voiceover.wav", "Output WAV file")
	flag.Parse()

	if *manifestPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	segments, err := loadManifest(*manifestPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to read manifest")
	}

	ctx := context.Background()
	total := *duration
	if total <= 0 && *videoPath != "" {
		probe := media.NewFFmpeg(media.Config{FFprobePath: *ffprobe})
		if total, err = probe.ProbeDuration(ctx, *videoPath); err != nil {
			appLogger.WithError(err).Fatal("Failed to probe video duration")
		}
	}
	if total <= 0 {
		total = lastEnd(segments)
	}

	samples, report := timeline.NewAssembler().AssembleFiles(ctx, segments, total, *rate)
	if err := pcm.WriteWAV(*outPath, samples, *rate); err != nil {
		appLogger.WithError(err).Fatal("Failed to write voiceover")
	}

	appLogger.WithFields(logger.Fields{
		"placed":   report.Placed,
		"skipped":  report.Skipped,
		"samples":  report.Samples,
		"duration": total,
	}).Infof("Voiceover written to %s", *outPath)
}

// loadManifest reads the segment list. Relative clip paths are resolved
// against the manifest's directory.
func loadManifest(path string) ([]domain.SynthesizedSegment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var segments []domain.SynthesizedSegment
	if err := json.Unmarshal(raw, &segments); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range segments {
		if p := segments[i].AudioPath; p != "" && !filepath.IsAbs(p) {
			segments[i].AudioPath = filepath.Join(base, p)
		}
	}
	return segments, nil
}

func lastEnd(segments []domain.SynthesizedSegment) float64 {
	var end float64
	for _, s := range segments {
		if s.End > end {
			end = s.End
		}
	}
	return end
}
