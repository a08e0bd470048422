package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/jobstore"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/transcript"
)

// Transcribe starts transcription of an uploaded video. It is accepted from
// pending and transcribed; re-running it replaces the previous transcript on
// the same job. An empty languageHint lets the engine detect the language.
func (o *Orchestrator) Transcribe(ctx context.Context, id, languageHint string) error {
	return o.start(ctx, id, domain.StageTranscribe, "Starting transcription...",
		func(ctx context.Context, job *domain.Job) error {
			return o.runTranscription(ctx, job, languageHint)
		})
}

func (o *Orchestrator) runTranscription(ctx context.Context, job *domain.Job, languageHint string) error {
	started := time.Now()
	active := domain.JobStatusTranscribing
	hint := languageHint
	if hint == "" {
		hint = "auto-detect"
	}
	logger.CtxInfo(ctx, "Starting transcription: video=%s language=%s", job.VideoPath, hint)

	o.progress(ctx, job.ID, active, 20, "Extracting audio...")
	audioPath := filepath.Join(filepath.Dir(job.VideoPath), "audio.wav")
	if err := o.media.ExtractAudio(ctx, job.VideoPath, audioPath); err != nil {
		return err
	}

	o.progress(ctx, job.ID, active, 40, "Transcribing audio...")
	result, err := o.transcriber.Transcribe(ctx, audioPath, languageHint)
	if err != nil {
		return err
	}
	if err := transcript.Validate(result.Segments); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTranscription, err)
	}

	o.progress(ctx, job.ID, active, 80, "Generating SRT...")
	t := transcript.Build(result.Language, result.Segments)
	if err := writeSRT(job, t.SRT); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}

	logger.With(logger.Fields{logger.FieldCount: len(t.Segments)}).
		Info(ctx, "Transcription finished: language=%s chars=%d", t.Language, len(t.FullText))

	return o.complete(ctx, job.ID, domain.StageTranscribe, jobstore.Patch{
		Message:    jobstore.Ptr("Transcription complete"),
		Transcript: t,
		AudioPath:  jobstore.Ptr(audioPath),
	}, started)
}
