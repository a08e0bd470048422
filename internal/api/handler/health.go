package handler

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

// HealthHandler handles health check endpoints
type HealthHandler struct {
	dirs []string
}

// NewHealthHandler creates a health handler checking that dirs exist.
func NewHealthHandler(dirs ...string) *HealthHandler {
	return &HealthHandler{dirs: dirs}
}

// Root handles GET /.
func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "autodub",
		"version": Version,
	})
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	storage := true
	for _, d := range h.dirs {
		if st, err := os.Stat(d); err != nil || !st.IsDir() {
			storage = false
			break
		}
	}

	status, code := "healthy", http.StatusOK
	if !storage {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"services": gin.H{
			"api":     true,
			"storage": storage,
		},
	})
}
