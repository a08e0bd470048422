// Package pipeline drives a dubbing job through its stages: transcription,
// voice generation and the final merge. Each request is checked and flipped
// to its in-progress status synchronously; the stage body then runs on the
// worker pool.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/autodub/internal/config"
	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/jobstore"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/pcm"
	"github.com/timmy/autodub/internal/synthesis"
	"github.com/timmy/autodub/internal/timeline"
	"github.com/timmy/autodub/internal/transcript"
	"github.com/timmy/autodub/internal/worker"
)

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, languageHint string) (*domain.TranscriptionResult, error)
}

// MediaToolkit covers the ffmpeg operations the stages need.
type MediaToolkit interface {
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ReplaceAudio(ctx context.Context, videoPath, audioPath, outPath string) error
}

// Publisher uploads a finished file and returns its public URL.
type Publisher interface {
	Publish(ctx context.Context, jobID, localPath string) (string, error)
}

// Submitter queues background work. *worker.Pool implements it.
type Submitter interface {
	Submit(t worker.Task) error
}

// Dependencies are the collaborators of an Orchestrator. Publisher is optional.
type Dependencies struct {
	Store       jobstore.Store
	Pool        Submitter
	Transcriber Transcriber
	Synthesizer synthesis.Synthesizer
	Media       MediaToolkit
	Publisher   Publisher
}

// Config holds the orchestrator settings.
type Config struct {
	UploadsDir        string
	OutputsDir        string
	MaxUploadBytes    int64
	AllowedExtensions []string
	SampleRate        int
	Languages         []config.LanguageConfig
}

const (
	MinSpeed = 0.5
	MaxSpeed = 2.0
)

// UploadResult describes a stored upload.
type UploadResult struct {
	JobID     string `json:"job_id"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
	Message   string `json:"message"`
}

// Orchestrator owns the job workflow.
type Orchestrator struct {
	store       jobstore.Store
	pool        Submitter
	transcriber Transcriber
	driver      *synthesis.Driver
	media       MediaToolkit
	publisher   Publisher
	assembler   *timeline.Assembler
	writeWAV    func(path string, samples []float32, rate int) error
	cfg         Config
}

// New creates an orchestrator.
func New(deps Dependencies, cfg Config) *Orchestrator {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = timeline.DefaultSampleRate
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = config.DefaultLanguages()
	}
	return &Orchestrator{
		store:       deps.Store,
		pool:        deps.Pool,
		transcriber: deps.Transcriber,
		driver:      synthesis.NewDriver(deps.Synthesizer),
		media:       deps.Media,
		publisher:   deps.Publisher,
		assembler:   timeline.NewAssembler(),
		writeWAV:    pcm.WriteWAV,
		cfg:         cfg,
	}
}

// Languages returns the TTS language catalog.
func (o *Orchestrator) Languages() []config.LanguageConfig {
	out := make([]config.LanguageConfig, 0, len(o.cfg.Languages))
	for i := range o.cfg.Languages {
		out = append(out, *o.cfg.Languages[i].Clone())
	}
	return out
}

func (o *Orchestrator) language(code string) (*config.LanguageConfig, bool) {
	for i := range o.cfg.Languages {
		if o.cfg.Languages[i].Code == code {
			return o.cfg.Languages[i].Clone(), true
		}
	}
	return nil, false
}

// Job returns a snapshot of one job.
func (o *Orchestrator) Job(ctx context.Context, id string) (*domain.Job, error) {
	return o.store.Get(ctx, id)
}

// Jobs returns every job ordered by creation time.
func (o *Orchestrator) Jobs(ctx context.Context) ([]*domain.Job, error) {
	return o.store.List(ctx)
}

// Transcript returns the job's transcript or domain.ErrNoTranscript.
func (o *Orchestrator) Transcript(ctx context.Context, id string) (*domain.Transcript, error) {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Transcript == nil {
		return nil, domain.ErrNoTranscript
	}
	return job.Transcript, nil
}

// SRTPath returns where the job's subtitle file lives.
func SRTPath(job *domain.Job) string {
	return filepath.Join(filepath.Dir(job.VideoPath), "transcript.srt")
}

// OutputName returns the download name of the dubbed video.
func OutputName(job *domain.Job) string {
	return stem(job.VideoFilename) + "_dubbed.mp4"
}

// SubtitleName returns the download name of the subtitle file.
func SubtitleName(job *domain.Job) string {
	return stem(job.VideoFilename) + ".srt"
}

func stem(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if name == "" || name == "." {
		return "video"
	}
	return name
}

func (o *Orchestrator) allowed(ext string) bool {
	for _, a := range o.cfg.AllowedExtensions {
		if strings.EqualFold(a, ext) {
			return true
		}
	}
	return false
}

// Upload stores a source video and creates its job. The job is created as
// uploading and moves to pending once the file is on disk, or to failed if
// it could not be stored.
func (o *Orchestrator) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !o.allowed(ext) {
		return nil, fmt.Errorf("%w: allowed %s", domain.ErrUnsupportedFile, strings.Join(o.cfg.AllowedExtensions, ", "))
	}

	id, err := o.store.Create(ctx, &domain.Job{
		Status:        domain.JobStatusUploading,
		Message:       "Uploading video...",
		VideoFilename: filename,
	})
	if err != nil {
		return nil, err
	}
	ctx = logger.SetJobID(ctx, id)

	videoPath := filepath.Join(o.cfg.UploadsDir, id, "original"+ext)
	size, err := o.saveUpload(videoPath, r)
	if err != nil {
		msg := "Upload failed"
		if errors.Is(err, domain.ErrFileTooLarge) {
			msg = fmt.Sprintf("File too large. Maximum size: %dMB", o.cfg.MaxUploadBytes/(1024*1024))
		}
		if _, uerr := o.store.Update(ctx, id, jobstore.Patch{
			Status:  jobstore.Ptr(domain.JobStatusFailed),
			Message: jobstore.Ptr(msg),
			Error:   jobstore.Ptr(err.Error()),
		}); uerr != nil {
			logger.CtxWarn(ctx, "Failed to mark upload as failed: %v", uerr)
		}
		return nil, err
	}

	if _, err := o.store.Update(ctx, id, jobstore.Patch{
		Expect:    []domain.JobStatus{domain.JobStatusUploading},
		Status:    jobstore.Ptr(domain.JobStatusPending),
		Progress:  jobstore.Ptr(0),
		Message:   jobstore.Ptr("Video uploaded successfully"),
		VideoPath: jobstore.Ptr(videoPath),
	}); err != nil {
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldSize: size}).Info(ctx, "Video uploaded: %s", filename)
	return &UploadResult{
		JobID:     id,
		Filename:  filename,
		SizeBytes: size,
		Message:   "Video uploaded successfully. Ready for transcription.",
	}, nil
}

func (o *Orchestrator) saveUpload(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}

	src := r
	if o.cfg.MaxUploadBytes > 0 {
		src = io.LimitReader(r, o.cfg.MaxUploadBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && o.cfg.MaxUploadBytes > 0 && n > o.cfg.MaxUploadBytes {
		err = fmt.Errorf("%w: limit is %d bytes", domain.ErrFileTooLarge, o.cfg.MaxUploadBytes)
	}
	if err != nil {
		os.Remove(path)
		return 0, err
	}
	return n, nil
}

// UpdateTranscript replaces the transcript segments by hand. Full text and
// SRT are regenerated; the job status never changes.
func (o *Orchestrator) UpdateTranscript(ctx context.Context, id string, segments []domain.Segment) (*domain.Transcript, error) {
	job, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == domain.JobStatusTranscribing {
		return nil, fmt.Errorf("%w: transcript is being regenerated", domain.ErrInvalidTransition)
	}
	if job.Transcript == nil {
		return nil, domain.ErrNoTranscript
	}
	if err := transcript.Validate(segments); err != nil {
		return nil, err
	}

	t := transcript.Build(job.Transcript.Language, segments)
	updated, err := o.store.Update(ctx, id, jobstore.Patch{
		Expect:     editableStatuses(),
		Transcript: t,
	})
	if err != nil {
		return nil, err
	}
	if err := writeSRT(updated, t.SRT); err != nil {
		logger.CtxWarn(logger.SetJobID(ctx, id), "Failed to write SRT: %v", err)
	}
	return updated.Transcript, nil
}

func editableStatuses() []domain.JobStatus {
	out := make([]domain.JobStatus, 0, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		if s != domain.JobStatusTranscribing {
			out = append(out, s)
		}
	}
	return out
}

func writeSRT(job *domain.Job, srt string) error {
	if job.VideoPath == "" {
		return nil
	}
	return os.WriteFile(SRTPath(job), []byte(srt), 0o644)
}

// stageFunc is the body of a stage. job is the snapshot taken when the
// stage was accepted.
type stageFunc func(ctx context.Context, job *domain.Job) error

var failureMessages = map[domain.Stage]string{
	domain.StageTranscribe:    "Transcription failed",
	domain.StageGenerateVoice: "Voice generation failed",
	domain.StageMergeVideo:    "Video merge failed",
}

// start flips the job into the stage's active status and queues run.
// The flip uses the stage's legal predecessors as precondition, so of two
// concurrent requests only one is accepted.
func (o *Orchestrator) start(ctx context.Context, id string, stage domain.Stage, message string, run stageFunc) error {
	rule, ok := domain.RuleFor(stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	job, err := o.store.Update(ctx, id, jobstore.Patch{
		Expect:   rule.From,
		Status:   jobstore.Ptr(rule.Active),
		Progress: jobstore.Ptr(10),
		Message:  jobstore.Ptr(message),
		Error:    jobstore.Ptr(""),
	})
	if err != nil {
		return err
	}

	stageCtx := logger.WithFields(context.WithoutCancel(ctx), logger.Fields{
		logger.FieldJobID: id,
		logger.FieldStage: string(stage),
	})
	task := worker.Task{
		Name: string(stage),
		Ctx:  stageCtx,
		Run: func(ctx context.Context) error {
			return run(ctx, job)
		},
		Finish: func(ctx context.Context, err error) {
			if err != nil {
				o.fail(ctx, id, stage, err)
			}
		},
	}
	if err := o.pool.Submit(task); err != nil {
		o.fail(stageCtx, id, stage, err)
		return fmt.Errorf("queue %s: %w", stage, err)
	}
	logger.CtxInfo(stageCtx, "Stage %s queued", stage)
	return nil
}

// fail moves a job from the stage's active status to failed.
func (o *Orchestrator) fail(ctx context.Context, id string, stage domain.Stage, cause error) {
	rule, _ := domain.RuleFor(stage)
	logger.With(logger.Fields{logger.FieldStatus: string(domain.JobStatusFailed)}).
		Error(ctx, "Stage %s failed: %v", stage, cause)

	if _, err := o.store.Update(ctx, id, jobstore.Patch{
		Expect:  []domain.JobStatus{rule.Active},
		Status:  jobstore.Ptr(domain.JobStatusFailed),
		Message: jobstore.Ptr(failureMessages[stage]),
		Error:   jobstore.Ptr(cause.Error()),
	}); err != nil {
		logger.CtxWarn(ctx, "Failed to record stage failure: %v", err)
	}
}

// progress reports a milestone of a running stage.
func (o *Orchestrator) progress(ctx context.Context, id string, active domain.JobStatus, pct int, message string) {
	if _, err := o.store.Update(ctx, id, jobstore.Patch{
		Expect:   []domain.JobStatus{active},
		Progress: jobstore.Ptr(pct),
		Message:  jobstore.Ptr(message),
	}); err != nil {
		logger.CtxWarn(ctx, "Failed to update progress: %v", err)
		return
	}
	logger.With(logger.Fields{logger.FieldProgress: pct}).Debug(ctx, "%s", message)
}

// complete moves a running stage to its done status with the final patch.
func (o *Orchestrator) complete(ctx context.Context, id string, stage domain.Stage, p jobstore.Patch, started time.Time) error {
	rule, _ := domain.RuleFor(stage)
	p.Expect = []domain.JobStatus{rule.Active}
	p.Status = jobstore.Ptr(rule.Done)
	p.Progress = jobstore.Ptr(100)
	if _, err := o.store.Update(ctx, id, p); err != nil {
		return err
	}
	logger.With(logger.Fields{logger.FieldStage: string(stage)}).
		WithDuration(time.Since(started).Milliseconds()).
		WithStatus(string(rule.Done)).
		Info(ctx, "Stage %s completed", stage)
	return nil
}
