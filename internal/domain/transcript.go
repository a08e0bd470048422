package domain

// Segment is a time-bounded span of transcript text, the unit of TTS
// synthesis and timeline placement. Times are in seconds.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is produced by transcription and may be edited by hand.
// FullText and SRT are derived from Segments and never edited directly.
type Transcript struct {
	Language string    `json:"language"`
	FullText string    `json:"full_text"`
	Segments []Segment `json:"segments"`
	SRT      string    `json:"srt,omitempty"`
}

// Clone returns a deep copy of the transcript.
func (t *Transcript) Clone() *Transcript {
	if t == nil {
		return nil
	}
	c := *t
	c.Segments = append([]Segment(nil), t.Segments...)
	return &c
}

// TranscriptionResult is what the speech-to-text collaborator returns.
type TranscriptionResult struct {
	Language string
	Segments []Segment
}

// SynthesizedSegment is the TTS output for one transcript segment.
// It lives only in job-scoped storage and is consumed by the timeline assembler.
type SynthesizedSegment struct {
	ID        int     `json:"id"`
	Start     float64 `json:"start"`
	End       float64 `json:"end"`
	AudioPath string  `json:"audio_path"`
	Text      string  `json:"text"`
}
