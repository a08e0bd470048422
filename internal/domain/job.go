package domain

import "time"

// JobStatus represents the status of a dubbing job.
// A job holds exactly one status at a time and only moves along the
// edges accepted by CanTransition.
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusUploading       JobStatus = "uploading"
	JobStatusTranscribing    JobStatus = "transcribing"
	JobStatusTranscribed     JobStatus = "transcribed"
	JobStatusGeneratingVoice JobStatus = "generating_voice"
	JobStatusVoiceGenerated  JobStatus = "voice_generated"
	JobStatusMerging         JobStatus = "merging"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusFailed          JobStatus = "failed"
)

// AllStatuses lists every status a job can hold.
var AllStatuses = []JobStatus{
	JobStatusPending,
	JobStatusUploading,
	JobStatusTranscribing,
	JobStatusTranscribed,
	JobStatusGeneratingVoice,
	JobStatusVoiceGenerated,
	JobStatusMerging,
	JobStatusCompleted,
	JobStatusFailed,
}

// IsValid reports whether s is one of the known statuses.
func (s JobStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// InProgress reports whether a stage is actively running for the job.
func (s JobStatus) InProgress() bool {
	switch s {
	case JobStatusUploading, JobStatusTranscribing, JobStatusGeneratingVoice, JobStatusMerging:
		return true
	default:
		return false
	}
}

// VoiceSettings records the TTS parameters used for the last voice generation.
type VoiceSettings struct {
	LangCode string  `json:"lang_code"`
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed"`
}

// VoiceStats counts per-segment outcomes of the last voice generation.
type VoiceStats struct {
	Total       int `json:"total"`
	Synthesized int `json:"synthesized"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	Placed      int `json:"placed"`
}

// Job is the unit of work tracked from upload to the dubbed output.
type Job struct {
	ID            string         `json:"job_id"`
	Status        JobStatus      `json:"status"`
	Progress      int            `json:"progress"`
	Message       string         `json:"message,omitempty"`
	VideoFilename string         `json:"video_filename,omitempty"`
	VideoPath     string         `json:"-"`
	AudioPath     string         `json:"-"`
	Transcript    *Transcript    `json:"transcript,omitempty"`
	VoiceSettings *VoiceSettings `json:"voice_settings,omitempty"`
	VoiceStats    *VoiceStats    `json:"voice_stats,omitempty"`
	VoiceoverPath string         `json:"-"`
	OutputPath    string         `json:"-"`
	OutputURL     string         `json:"output_url,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a deep copy of the job so callers never share
// memory with the store's table.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Transcript = j.Transcript.Clone()
	if j.VoiceSettings != nil {
		vs := *j.VoiceSettings
		c.VoiceSettings = &vs
	}
	if j.VoiceStats != nil {
		st := *j.VoiceStats
		c.VoiceStats = &st
	}
	return &c
}
