package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/jobstore"
	"github.com/timmy/autodub/internal/synthesis"
)

// VoiceRequest selects the TTS voice for a generation run.
type VoiceRequest struct {
	LangCode string
	Voice    string
	Speed    float64
}

// GenerateVoice starts voice generation from the job's current transcript.
// The language and voice must exist in the catalog and speed must be in
// [MinSpeed, MaxSpeed].
func (o *Orchestrator) GenerateVoice(ctx context.Context, id string, req VoiceRequest) error {
	lang, ok := o.language(req.LangCode)
	if !ok {
		return fmt.Errorf("%w: language %q", domain.ErrUnknownVoice, req.LangCode)
	}
	if !lang.HasVoice(req.Voice) {
		return fmt.Errorf("%w: voice %q for language %q", domain.ErrUnknownVoice, req.Voice, req.LangCode)
	}
	if req.Speed < MinSpeed || req.Speed > MaxSpeed {
		return fmt.Errorf("%w: %.2f not in [%.1f, %.1f]", domain.ErrInvalidSpeed, req.Speed, MinSpeed, MaxSpeed)
	}

	job, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	rule, _ := domain.RuleFor(domain.StageGenerateVoice)
	if !rule.CanStart(job.Status) {
		return fmt.Errorf("%w: transcription must be complete before generating voice (status %s)",
			domain.ErrInvalidTransition, job.Status)
	}
	if job.Transcript == nil {
		return domain.ErrNoTranscript
	}

	settings := domain.VoiceSettings{LangCode: req.LangCode, Voice: req.Voice, Speed: req.Speed}
	engineLang := lang.EngineLanguage()
	return o.start(ctx, id, domain.StageGenerateVoice, "Starting voice generation...",
		func(ctx context.Context, job *domain.Job) error {
			return o.runVoiceGeneration(ctx, job, settings, engineLang)
		})
}

// runVoiceGeneration synthesizes every segment, lays the clips on a track
// as long as the source video and writes voiceover.wav. Failed segments are
// counted and left silent. When every non-empty segment fails the stage fails
// with ErrNothingSynthesized instead of producing an all-silent voiceover.
func (o *Orchestrator) runVoiceGeneration(ctx context.Context, job *domain.Job, settings domain.VoiceSettings, engineLang string) error {
	started := time.Now()
	active := domain.JobStatusGeneratingVoice
	if job.Transcript == nil {
		return domain.ErrNoTranscript
	}
	jobDir := filepath.Dir(job.VideoPath)
	segmentsDir := filepath.Join(jobDir, "segments")

	// clips from an earlier run must not leak into this one
	if err := os.RemoveAll(segmentsDir); err != nil {
		return fmt.Errorf("clear segment dir: %w", err)
	}

	o.progress(ctx, job.ID, active, 20, "Initializing TTS...")
	segments := job.Transcript.Segments
	result, err := o.driver.Run(ctx, synthesis.Request{
		Segments:  segments,
		Voice:     settings.Voice,
		Language:  engineLang,
		Speed:     settings.Speed,
		OutputDir: segmentsDir,
		OnSegment: func(position, total int) {
			pct := 20 + position*60/total
			o.progress(ctx, job.ID, active, pct, fmt.Sprintf("Generating segment %d/%d...", position+1, total))
		},
	})
	if err != nil {
		return err
	}
	if result.Synthesized() == 0 && result.Failed() > 0 {
		return fmt.Errorf("%w: %d of %d segments failed", domain.ErrNothingSynthesized, result.Failed(), len(segments))
	}

	o.progress(ctx, job.ID, active, 85, "Concatenating audio segments...")
	duration, err := o.media.ProbeDuration(ctx, job.VideoPath)
	if err != nil {
		return err
	}
	samples, report := o.assembler.AssembleFiles(ctx, result.Clips(), duration, o.cfg.SampleRate)

	voiceoverPath := filepath.Join(jobDir, "voiceover.wav")
	if err := o.writeWAV(voiceoverPath, samples, o.cfg.SampleRate); err != nil {
		return fmt.Errorf("write voiceover: %w", err)
	}

	return o.complete(ctx, job.ID, domain.StageGenerateVoice, jobstore.Patch{
		Message:       jobstore.Ptr("Voice generation complete"),
		VoiceoverPath: jobstore.Ptr(voiceoverPath),
		VoiceSettings: &settings,
		VoiceStats: &domain.VoiceStats{
			Total:       len(segments),
			Synthesized: result.Synthesized(),
			Skipped:     result.Skipped(),
			Failed:      result.Failed(),
			Placed:      report.Placed,
		},
	}, started)
}
