package domain

import "errors"

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidTransition  = errors.New("invalid job state transition")
	ErrNoTranscript       = errors.New("transcript not available")
	ErrNoVoiceover        = errors.New("voiceover not available")
	ErrNoOutput           = errors.New("dubbed output not available")
	ErrInvalidSegment     = errors.New("invalid transcript segment")
	ErrUnsupportedFile    = errors.New("unsupported file type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrUnknownVoice       = errors.New("unknown language or voice")
	ErrInvalidSpeed       = errors.New("speed out of range")
	ErrNothingSynthesized = errors.New("no segment could be synthesized")

	// Collaborator failures. Implementations wrap these so stage workers
	// and handlers can classify errors with errors.Is.
	ErrTranscription = errors.New("transcription failed")
	ErrSynthesis     = errors.New("speech synthesis failed")
	ErrMedia         = errors.New("media processing failed")
)
