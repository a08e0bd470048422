package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields. Attached to the context logger and carried through a
// request or a background stage.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the dubbing job ID
	FieldJobID = "job_id"

	// FieldStage is the pipeline stage (transcribe, generate_voice, merge_video)
	FieldStage = "stage"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Metric fields. Attached per entry, used for aggregation and alerting.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldStatus     = "status"

	// FieldSegmentID is the transcript segment being synthesized
	FieldSegmentID = "segment_id"

	// FieldProgress is the job progress percentage
	FieldProgress = "progress"
)
