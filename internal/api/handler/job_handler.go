package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/timmy/autodub/internal/config"
	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/pipeline"
)

// JobHandler serves the dubbing workflow endpoints.
type JobHandler struct {
	orch *pipeline.Orchestrator
}

// NewJobHandler creates a new job handler.
// Parameters:
//   - orch: orchestrator driving the job stages.
//
// Returns:
//   - *JobHandler: initialized handler.
func NewJobHandler(orch *pipeline.Orchestrator) *JobHandler {
	return &JobHandler{orch: orch}
}

// LanguageOption is one entry of the languages listing.
type LanguageOption struct {
	Code   string             `json:"code"`
	Name   string             `json:"name"`
	Voices []config.VoiceInfo `json:"voices"`
}

// TranscribeRequest is the optional body of POST /api/transcribe/:id.
type TranscribeRequest struct {
	Language string `json:"language"`
}

// GenerateVoiceRequest is the body of POST /api/generate-voice/:id.
type GenerateVoiceRequest struct {
	LanguageCode string   `json:"language_code"`
	Voice        string   `json:"voice"`
	Speed        *float64 `json:"speed"`
}

// TranscriptUpdateRequest is the body of PUT /api/transcript/:id.
type TranscriptUpdateRequest struct {
	Segments []domain.Segment `json:"segments" binding:"required"`
}

// Languages handles GET /api/languages.
func (h *JobHandler) Languages(c *gin.Context) {
	langs := h.orch.Languages()
	out := make([]LanguageOption, 0, len(langs))
	for _, l := range langs {
		voices := make([]config.VoiceInfo, 0, len(l.Voices))
		for _, v := range l.Voices {
			voices = append(voices, config.DescribeVoice(v))
		}
		out = append(out, LanguageOption{Code: l.Code, Name: l.Name, Voices: voices})
	}
	c.JSON(http.StatusOK, gin.H{"languages": out})
}

// Upload handles POST /api/upload (multipart field "file").
func (h *JobHandler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	res, err := h.orch.Upload(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transcribe handles POST /api/transcribe/:id.
// A 503 reply means the worker queue rejected the stage; the job is failed
// and the video must be uploaded again.
func (h *JobHandler) Transcribe(c *gin.Context) {
	var req TranscribeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	id := c.Param("id")
	if err := h.orch.Transcribe(c.Request.Context(), id, req.Language); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Transcription started", "job_id": id})
}

// GetTranscript handles GET /api/transcript/:id.
func (h *JobHandler) GetTranscript(c *gin.Context) {
	t, err := h.orch.Transcript(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UpdateTranscript handles PUT /api/transcript/:id.
func (h *JobHandler) UpdateTranscript(c *gin.Context) {
	var req TranscriptUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	t, err := h.orch.UpdateTranscript(c.Request.Context(), id, req.Segments)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Transcript updated", "job_id": id, "transcript": t})
}

// GenerateVoice handles POST /api/generate-voice/:id.
// Omitted fields default to language "a", voice "af_heart" and speed 1.0.
// A 503 reply leaves the job failed, as for Transcribe.
func (h *JobHandler) GenerateVoice(c *gin.Context) {
	var req GenerateVoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	voice := pipeline.VoiceRequest{LangCode: req.LanguageCode, Voice: req.Voice, Speed: 1.0}
	if voice.LangCode == "" {
		voice.LangCode = "a"
	}
	if voice.Voice == "" {
		voice.Voice = "af_heart"
	}
	if req.Speed != nil {
		voice.Speed = *req.Speed
	}

	id := c.Param("id")
	if err := h.orch.GenerateVoice(c.Request.Context(), id, voice); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Voice generation started", "job_id": id})
}

// MergeVideo handles POST /api/merge-video/:id.
// A 503 reply leaves the job failed, as for Transcribe.
func (h *JobHandler) MergeVideo(c *gin.Context) {
	id := c.Param("id")
	if err := h.orch.MergeVideo(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Video merge started", "job_id": id})
}

// GetJob handles GET /api/job/:id.
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.orch.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobHandler) ListJobs(c *gin.Context) {
	jobs, err := h.orch.Jobs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "total": len(jobs)})
}

// DownloadVideo handles GET /api/download/:id.
func (h *JobHandler) DownloadVideo(c *gin.Context) {
	job, err := h.orch.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if job.Status != domain.JobStatusCompleted || job.OutputPath == "" {
		respondError(c, domain.ErrNoOutput)
		return
	}
	if !fileExists(job.OutputPath) {
		logger.CtxWarn(c.Request.Context(), "Output missing on disk: job_id=%s, path=%s", job.ID, job.OutputPath)
		c.JSON(http.StatusNotFound, gin.H{"error": "Output file not found"})
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(job.OutputPath, pipeline.OutputName(job))
}

// DownloadSRT handles GET /api/download/:id/srt.
func (h *JobHandler) DownloadSRT(c *gin.Context) {
	job, err := h.orch.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if job.Transcript == nil {
		respondError(c, domain.ErrNoTranscript)
		return
	}
	path := pipeline.SRTPath(job)
	if !fileExists(path) {
		c.JSON(http.StatusNotFound, gin.H{"error": "SRT file not found"})
		return
	}
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.FileAttachment(path, pipeline.SubtitleName(job))
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
