package storage

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/autodub/internal/logger"
)

// Publisher uploads finished job outputs to object storage.
type Publisher struct {
	store  ObjectStorage
	prefix string
}

// NewPublisher creates a publisher writing under prefix.
func NewPublisher(store ObjectStorage, prefix string) *Publisher {
	return &Publisher{store: store, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key used for a job's file.
func (p *Publisher) Key(jobID, localPath string) string {
	return path.Join(p.prefix, jobID, filepath.Base(localPath))
}

// Publish uploads localPath and returns its public URL.
func (p *Publisher) Publish(ctx context.Context, jobID, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat output: %w", err)
	}

	contentType := contentTypeFor(localPath)

	key := p.Key(jobID, localPath)
	start := time.Now()
	if err := p.store.Upload(ctx, key, f, st.Size(), contentType); err != nil {
		return "", err
	}

	logger.With(logger.Fields{
		logger.FieldSize:       st.Size(),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Info(ctx, "Published %s", key)
	return p.store.GetURL(key), nil
}

// outputTypes covers extensions missing from Go's builtin mime table.
var outputTypes = map[string]string{
	".mp4": "video/mp4",
	".wav": "audio/wav",
	".srt": "application/x-subrip",
}

func contentTypeFor(localPath string) string {
	ext := strings.ToLower(filepath.Ext(localPath))
	if ct, ok := outputTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
