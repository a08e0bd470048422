package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/timmy/autodub/internal/api"
	"github.com/timmy/autodub/internal/config"
	"github.com/timmy/autodub/internal/jobstore"
	"github.com/timmy/autodub/internal/logger"
	"github.com/timmy/autodub/internal/media"
	"github.com/timmy/autodub/internal/pipeline"
	"github.com/timmy/autodub/internal/repository"
	"github.com/timmy/autodub/internal/service"
	"github.com/timmy/autodub/internal/storage"
	"github.com/timmy/autodub/internal/worker"
)

func main() {
	// Initialize logger first (from LOG_* environment variables)
	appLogger := logger.NewFromEnv(logger.LoadFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	for _, dir := range []string{cfg.Paths.UploadsDir, cfg.Paths.OutputsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			appLogger.WithError(err).Fatalf("Failed to create directory %s", dir)
		}
	}

	ctx := context.Background()

	// Job store and its snapshot sink
	snapshotter, err := newSnapshotter(cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize job snapshots")
	}
	store := jobstore.NewMemoryStore(jobstore.WithSnapshotter(snapshotter))
	report, err := store.Restore(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to restore jobs")
	}
	appLogger.WithFields(logger.Fields{
		"restored":    report.Restored,
		"interrupted": len(report.Interrupted),
		"skipped":     report.Skipped,
		"backend":     cfg.Jobs.SnapshotBackend,
	}).Info("Job table restored")

	// Collaborators
	ffmpeg := media.NewFFmpeg(media.Config{
		FFmpegPath:        cfg.Media.FFmpegPath,
		FFprobePath:       cfg.Media.FFprobePath,
		ExtractSampleRate: cfg.Media.ExtractSampleRate,
		KeepOriginalAudio: cfg.Media.KeepOriginalAudio,
		OriginalVolume:    cfg.Media.OriginalVolume,
	})
	if err := ffmpeg.Check(ctx); err != nil {
		appLogger.WithError(err).Warn("ffmpeg check failed, media stages will fail")
	}

	transcriber := service.NewTranscriptionService(&service.TranscriptionConfig{
		BaseURL: cfg.ASR.BaseURL,
		APIKey:  cfg.ASR.APIKey,
		Model:   cfg.ASR.Model,
		Timeout: cfg.ASR.Timeout,
	})
	speech := service.NewSpeechService(&service.SpeechConfig{
		BaseURL: cfg.TTS.BaseURL,
		APIKey:  cfg.TTS.APIKey,
		Model:   cfg.TTS.Model,
		Timeout: cfg.TTS.Timeout,
	})
	appLogger.WithFields(logger.Fields{
		"asr_model": transcriber.GetModel(),
		"tts_model": cfg.TTS.Model,
	}).Info("Speech services configured")

	pool := worker.NewPool(worker.Config{
		Workers:   cfg.Jobs.Workers,
		QueueSize: cfg.Jobs.QueueSize,
	})
	pool.Start()

	deps := pipeline.Dependencies{
		Store:       store,
		Pool:        pool,
		Transcriber: transcriber,
		Synthesizer: speech,
		Media:       ffmpeg,
	}
	if cfg.Publish.Enabled {
		publisher, err := newPublisher(ctx, cfg)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize output publishing")
		}
		deps.Publisher = publisher
	}

	orch := pipeline.New(deps, pipeline.Config{
		UploadsDir:        cfg.Paths.UploadsDir,
		OutputsDir:        cfg.Paths.OutputsDir,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes(),
		AllowedExtensions: cfg.Server.AllowedExtensions,
		SampleRate:        cfg.Voiceover.SampleRate,
		Languages:         cfg.Languages,
	})

	// Periodic snapshots; the loop writes a final one when cancelled
	snapCtx, stopSnapshots := context.WithCancel(logger.SetComponent(ctx, "snapshotter"))
	var snapWG sync.WaitGroup
	snapWG.Add(1)
	go func() {
		defer snapWG.Done()
		store.RunSnapshots(snapCtx, cfg.Jobs.SnapshotInterval)
	}()

	router := api.SetupRouter(api.RouterDeps{
		Orchestrator: orch,
		Jobs:         store,
		Pool:         pool,
		Config:       cfg,
		Logger:       appLogger,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Jobs.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}
	if err := pool.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("Workers still running at shutdown")
	}

	stopSnapshots()
	snapWG.Wait()

	appLogger.Info("Server exited")
}

// newSnapshotter selects the job snapshot backend.
func newSnapshotter(cfg *config.Config) (jobstore.Snapshotter, error) {
	switch cfg.Jobs.SnapshotBackend {
	case "database":
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		return repository.NewJobSnapshotRepository(db), nil
	default:
		return jobstore.NewFileSnapshotter(cfg.Jobs.SnapshotPath), nil
	}
}

// newPublisher builds the object storage client for dubbed outputs.
func newPublisher(ctx context.Context, cfg *config.Config) (*storage.Publisher, error) {
	objectStorage, err := storage.NewStorage(&storage.Config{
		Type:      storage.StorageType(cfg.Publish.Type),
		Endpoint:  cfg.Publish.Endpoint,
		AccessKey: cfg.Publish.AccessKey,
		SecretKey: cfg.Publish.SecretKey,
		UseSSL:    cfg.Publish.UseSSL,
		Bucket:    cfg.Publish.Bucket,
		Region:    cfg.Publish.Region,
		PublicURL: cfg.Publish.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return storage.NewPublisher(objectStorage, cfg.Publish.Prefix), nil
}
