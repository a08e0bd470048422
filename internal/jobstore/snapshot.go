package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
)

// TimeLayout is the timestamp format used in snapshots (always UTC).
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Record is the serialized form of a job.
type Record struct {
	ID            string                `json:"job_id"`
	Status        string                `json:"status"`
	Progress      int                   `json:"progress"`
	Message       string                `json:"message"`
	VideoFilename string                `json:"video_filename,omitempty"`
	VideoPath     string                `json:"video_path,omitempty"`
	AudioPath     string                `json:"audio_path,omitempty"`
	Transcript    *domain.Transcript    `json:"transcript,omitempty"`
	VoiceSettings *domain.VoiceSettings `json:"voice_settings,omitempty"`
	VoiceStats    *domain.VoiceStats    `json:"voice_stats,omitempty"`
	VoiceoverPath string                `json:"voiceover_path,omitempty"`
	OutputPath    string                `json:"output_path,omitempty"`
	OutputURL     string                `json:"output_url,omitempty"`
	Error         string                `json:"error,omitempty"`
	CreatedAt     string                `json:"created_at"`
	UpdatedAt     string                `json:"updated_at"`
}

// NewRecord serializes a job.
func NewRecord(job *domain.Job) Record {
	j := job.Clone()
	return Record{
		ID:            j.ID,
		Status:        string(j.Status),
		Progress:      j.Progress,
		Message:       j.Message,
		VideoFilename: j.VideoFilename,
		VideoPath:     j.VideoPath,
		AudioPath:     j.AudioPath,
		Transcript:    j.Transcript,
		VoiceSettings: j.VoiceSettings,
		VoiceStats:    j.VoiceStats,
		VoiceoverPath: j.VoiceoverPath,
		OutputPath:    j.OutputPath,
		OutputURL:     j.OutputURL,
		Error:         j.Error,
		CreatedAt:     j.CreatedAt.UTC().Format(TimeLayout),
		UpdatedAt:     j.UpdatedAt.UTC().Format(TimeLayout),
	}
}

// Job deserializes the record.
func (r Record) Job() (*domain.Job, error) {
	status := domain.JobStatus(r.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("job %s: unknown status %q", r.ID, r.Status)
	}
	created, err := time.Parse(TimeLayout, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("job %s: created_at: %w", r.ID, err)
	}
	updated, err := time.Parse(TimeLayout, r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("job %s: updated_at: %w", r.ID, err)
	}
	j := &domain.Job{
		ID:            r.ID,
		Status:        status,
		Progress:      clampProgress(r.Progress),
		Message:       r.Message,
		VideoFilename: r.VideoFilename,
		VideoPath:     r.VideoPath,
		AudioPath:     r.AudioPath,
		Transcript:    r.Transcript,
		VoiceSettings: r.VoiceSettings,
		VoiceStats:    r.VoiceStats,
		VoiceoverPath: r.VoiceoverPath,
		OutputPath:    r.OutputPath,
		OutputURL:     r.OutputURL,
		Error:         r.Error,
		CreatedAt:     created,
		UpdatedAt:     updated,
	}
	return j.Clone(), nil
}

// Snapshotter persists and loads a full copy of the job table.
// Save replaces the previous snapshot entirely.
type Snapshotter interface {
	Save(ctx context.Context, records map[string]Record) error
	Load(ctx context.Context) (map[string]Record, error)
}

// FileSnapshotter writes the table as one JSON object keyed by job id.
type FileSnapshotter struct {
	path string
}

// NewFileSnapshotter returns a snapshotter writing to path.
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Path returns the snapshot file location.
func (f *FileSnapshotter) Path() string {
	return f.path
}

// Save overwrites the snapshot file through a temp file and rename.
func (f *FileSnapshotter) Save(ctx context.Context, records map[string]Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot. A missing file yields an empty table.
func (f *FileSnapshotter) Load(ctx context.Context) (map[string]Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	records := make(map[string]Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", f.path, err)
	}
	return records, nil
}

// RecoveryReport describes what Restore loaded.
type RecoveryReport struct {
	Restored    int
	Interrupted []string
	Skipped     int
}

// Snapshot hands a copy of every job to the snapshotter. Jobs are copied
// one at a time, so the snapshot is not consistent across jobs.
func (m *MemoryStore) Snapshot(ctx context.Context) error {
	if m.snapshotter == nil {
		return nil
	}
	m.snapMu.Lock()
	defer m.snapMu.Unlock()

	jobs, err := m.List(ctx)
	if err != nil {
		return err
	}
	records := make(map[string]Record, len(jobs))
	for _, j := range jobs {
		records[j.ID] = NewRecord(j)
	}

	start := time.Now()
	if err := m.snapshotter.Save(ctx, records); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	logger.With(logger.Fields{}).
		WithCount(len(records)).
		WithDuration(time.Since(start).Milliseconds()).
		Debug(ctx, "Job snapshot saved")
	return nil
}

// Restore loads the last snapshot into the table. Jobs caught in an
// in-progress status are marked failed since their work died with the
// previous process.
func (m *MemoryStore) Restore(ctx context.Context) (RecoveryReport, error) {
	var report RecoveryReport
	if m.snapshotter == nil {
		return report, nil
	}
	records, err := m.snapshotter.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load snapshot: %w", err)
	}

	now := m.timestamp()
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range records {
		if rec.ID == "" {
			rec.ID = id
		}
		j, err := rec.Job()
		if err != nil {
			logger.CtxWarn(ctx, "Skipping snapshot record: %v", err)
			report.Skipped++
			continue
		}
		if j.Status.InProgress() {
			j.Error = fmt.Sprintf("interrupted by restart during %s", j.Status)
			j.Message = "Interrupted by restart"
			j.Status = domain.JobStatusFailed
			j.UpdatedAt = now
			report.Interrupted = append(report.Interrupted, j.ID)
		}
		m.jobs[j.ID] = &entry{job: j}
		report.Restored++
	}
	return report, nil
}

// RunSnapshots saves a snapshot every interval until ctx is done, then
// takes a final one.
func (m *MemoryStore) RunSnapshots(ctx context.Context, interval time.Duration) {
	if m.snapshotter == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := m.Snapshot(context.WithoutCancel(ctx)); err != nil {
				logger.CtxError(ctx, "Final job snapshot failed: %v", err)
			}
			return
		case <-ticker.C:
			if err := m.Snapshot(ctx); err != nil {
				logger.CtxError(ctx, "Job snapshot failed: %v", err)
			}
		}
	}
}
