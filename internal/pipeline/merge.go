package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/jobstore"
	"github.com/timmy/autodub/internal/logger"
)

// DownloadURL is the API path serving a job's dubbed video.
func DownloadURL(jobID string) string {
	return "/api/download/" + jobID
}

// MergeVideo starts replacing the source audio track with the voiceover.
func (o *Orchestrator) MergeVideo(ctx context.Context, id string) error {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return err
	}
	rule, _ := domain.RuleFor(domain.StageMergeVideo)
	if !rule.CanStart(job.Status) {
		return fmt.Errorf("%w: voice must be generated before merging (status %s)",
			domain.ErrInvalidTransition, job.Status)
	}
	if job.VoiceoverPath == "" {
		return domain.ErrNoVoiceover
	}
	return o.start(ctx, id, domain.StageMergeVideo, "Starting video merge...", o.runMerge)
}

func (o *Orchestrator) runMerge(ctx context.Context, job *domain.Job) error {
	started := time.Now()
	active := domain.JobStatusMerging

	o.progress(ctx, job.ID, active, 30, "Merging audio with video...")
	outDir := filepath.Join(o.cfg.OutputsDir, job.ID)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	outPath := filepath.Join(outDir, OutputName(job))
	if err := o.media.ReplaceAudio(ctx, job.VideoPath, job.VoiceoverPath, outPath); err != nil {
		return err
	}

	outputURL := DownloadURL(job.ID)
	if o.publisher != nil {
		o.progress(ctx, job.ID, active, 90, "Publishing dubbed video...")
		url, err := o.publisher.Publish(ctx, job.ID, outPath)
		if err != nil {
			// the local download still works
			logger.CtxWarn(ctx, "Publishing failed, serving local file: %v", err)
		} else {
			outputURL = url
		}
	}

	return o.complete(ctx, job.ID, domain.StageMergeVideo, jobstore.Patch{
		Message:    jobstore.Ptr("Dubbing complete!"),
		OutputPath: jobstore.Ptr(outPath),
		OutputURL:  jobstore.Ptr(outputURL),
	}, started)
}
