package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/autodub/internal/api/handler"
	"github.com/timmy/autodub/internal/api/middleware"
	"github.com/timmy/autodub/internal/config"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/pipeline"
)

// RouterDeps holds what the HTTP layer is built from.
type RouterDeps struct {
	Orchestrator *pipeline.Orchestrator
	Jobs         handler.JobTable
	Pool         handler.PoolStats
	Config       *config.Config
	Logger       *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config

	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(cfg.Server.CORS))

	healthHandler := handler.NewHealthHandler(cfg.Paths.UploadsDir, cfg.Paths.OutputsDir)
	jobHandler := handler.NewJobHandler(deps.Orchestrator)
	adminHandler := handler.NewAdminHandler(deps.Jobs, deps.Pool)

	r.GET("/", healthHandler.Root)
	r.GET("/health", healthHandler.Health)
	r.Static("/outputs", cfg.Paths.OutputsDir)

	api := r.Group("/api")
	{
		api.GET("/languages", jobHandler.Languages)
		api.POST("/upload", jobHandler.Upload)

		// Stages
		api.POST("/transcribe/:id", jobHandler.Transcribe)
		api.POST("/generate-voice/:id", jobHandler.GenerateVoice)
		api.POST("/merge-video/:id", jobHandler.MergeVideo)

		// Transcript editing
		api.GET("/transcript/:id", jobHandler.GetTranscript)
		api.PUT("/transcript/:id", jobHandler.UpdateTranscript)

		// Jobs
		api.GET("/job/:id", jobHandler.GetJob)
		api.GET("/jobs", jobHandler.ListJobs)

		// Downloads
		api.GET("/download/:id", jobHandler.DownloadVideo)
		api.GET("/download/:id/srt", jobHandler.DownloadSRT)

		admin := api.Group("/admin")
		admin.POST("/snapshot", adminHandler.TriggerSnapshot)
		admin.GET("/workers", adminHandler.GetWorkers)
	}

	return r
}
