package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type memoryStorage struct {
	objects      map[string][]byte
	contentTypes map[string]string
	failUpload   error
}

func (m *memoryStorage) EnsureBucket(ctx context.Context) error { return nil }

func (m *memoryStorage) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if m.failUpload != nil {
		return m.failUpload
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	if int64(buf.Len()) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = buf.Bytes()
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryStorage) GetURL(key string) string { return "https://cdn.example.com/" + key }

func TestPublish(t *testing.T) {
	out := filepath.Join(t.TempDir(), "talk_dubbed.mp4")
	if err := os.WriteFile(out, []byte("fake mp4"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := &memoryStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}}

	url, err := NewPublisher(store, "/dubbed/").Publish(context.Background(), "job-1", out)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if url != "https://cdn.example.com/dubbed/job-1/talk_dubbed.mp4" {
		t.Errorf("url = %q", url)
	}
	if string(store.objects["dubbed/job-1/talk_dubbed.mp4"]) != "fake mp4" {
		t.Errorf("object not stored: %v", store.objects)
	}
	if store.contentTypes["dubbed/job-1/talk_dubbed.mp4"] != "video/mp4" {
		t.Errorf("content type = %q", store.contentTypes["dubbed/job-1/talk_dubbed.mp4"])
	}
}

func TestPublishErrors(t *testing.T) {
	store := &memoryStorage{objects: map[string][]byte{}, contentTypes: map[string]string{}, failUpload: errors.New("denied")}
	p := NewPublisher(store, "")

	if _, err := p.Publish(context.Background(), "j", filepath.Join(t.TempDir(), "missing.mp4")); err == nil {
		t.Error("expected error for missing file")
	}
	out := filepath.Join(t.TempDir(), "x.mp4")
	os.WriteFile(out, []byte("x"), 0o644)
	if _, err := p.Publish(context.Background(), "j", out); err == nil {
		t.Error("expected upload error")
	}
}

func TestDetectStorageType(t *testing.T) {
	tests := map[string]StorageType{
		"https://acct.r2.cloudflarestorage.com": StorageTypeR2,
		"s3.us-west-2.amazonaws.com":            StorageTypeS3,
		"localhost:9000":                        StorageTypeS3Compatible,
	}
	for endpoint, want := range tests {
		if got := detectStorageType(endpoint); got != want {
			t.Errorf("detectStorageType(%q) = %s, want %s", endpoint, got, want)
		}
	}
}

func TestPublicBase(t *testing.T) {
	if got := publicBase(&Config{PublicURL: "https://pub.example.com/"}, "x"); got != "https://pub.example.com" {
		t.Errorf("publicBase() = %q", got)
	}
	if got := publicBase(&Config{Bucket: "dub", UseSSL: true}, normalizeEndpoint("https://minio.local:9000/ignored")); got != "https://minio.local:9000/dub" {
		t.Errorf("publicBase() = %q", got)
	}
}
