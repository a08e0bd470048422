package domain

// Stage is one phase of the dubbing workflow with its own background execution.
type Stage string

const (
	StageTranscribe    Stage = "transcribe"
	StageGenerateVoice Stage = "generate_voice"
	StageMergeVideo    Stage = "merge_video"
)

// StageRule describes which statuses may start a stage and which statuses
// the stage moves through.
type StageRule struct {
	From   []JobStatus
	Active JobStatus
	Done   JobStatus
}

var stageRules = map[Stage]StageRule{
	StageTranscribe: {
		From:   []JobStatus{JobStatusPending, JobStatusTranscribed},
		Active: JobStatusTranscribing,
		Done:   JobStatusTranscribed,
	},
	StageGenerateVoice: {
		From:   []JobStatus{JobStatusTranscribed, JobStatusVoiceGenerated},
		Active: JobStatusGeneratingVoice,
		Done:   JobStatusVoiceGenerated,
	},
	StageMergeVideo: {
		From:   []JobStatus{JobStatusVoiceGenerated},
		Active: JobStatusMerging,
		Done:   JobStatusCompleted,
	},
}

// RuleFor returns the transition rule of a stage.
func RuleFor(stage Stage) (StageRule, bool) {
	rule, ok := stageRules[stage]
	return rule, ok
}

// CanStart reports whether the stage may be requested from status.
func (r StageRule) CanStart(status JobStatus) bool {
	for _, s := range r.From {
		if s == status {
			return true
		}
	}
	return false
}

// transitions is the complete status graph. failed and completed are terminal.
var transitions = map[JobStatus][]JobStatus{
	JobStatusUploading:       {JobStatusPending, JobStatusFailed},
	JobStatusPending:         {JobStatusTranscribing},
	JobStatusTranscribing:    {JobStatusTranscribed, JobStatusFailed},
	JobStatusTranscribed:     {JobStatusTranscribing, JobStatusGeneratingVoice},
	JobStatusGeneratingVoice: {JobStatusVoiceGenerated, JobStatusFailed},
	JobStatusVoiceGenerated:  {JobStatusGeneratingVoice, JobStatusMerging},
	JobStatusMerging:         {JobStatusCompleted, JobStatusFailed},
}

// CanTransition enforces the allowed job state machine edges.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsInitial reports whether a job may be created with the given status.
func IsInitial(status JobStatus) bool {
	return status == JobStatusUploading || status == JobStatusPending
}
