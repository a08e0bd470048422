package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/worker"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNoTranscript),
		errors.Is(err, domain.ErrNoVoiceover),
		errors.Is(err, domain.ErrNoOutput),
		errors.Is(err, domain.ErrInvalidSegment),
		errors.Is(err, domain.ErrUnsupportedFile),
		errors.Is(err, domain.ErrUnknownVoice),
		errors.Is(err, domain.ErrInvalidSpeed):
		return http.StatusBadRequest
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrPoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// queueRejectedHint accompanies 503 replies from the stage endpoints. The job
// was moved to failed, which has no outgoing edges, so the video has to be
// uploaded again as a new job.
const queueRejectedHint = "Job could not be queued and was marked failed; upload the video again"

// respondError writes {"error": ...} with the mapped status. Server-side
// failures also carry the request ID so they can be matched against the logs.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	ctx := c.Request.Context()
	body := gin.H{"error": err.Error()}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.CtxError(ctx, "Request error: path=%s, error=%v", c.FullPath(), err)
		if id := logger.GetRequestID(ctx); id != "" {
			body["request_id"] = id
		}
	} else {
		logger.CtxWarn(ctx, "Request rejected: path=%s, status=%d, error=%v", c.FullPath(), status, err)
	}
	if status == http.StatusServiceUnavailable {
		body["message"] = queueRejectedHint
	}
	c.JSON(status, body)
}
