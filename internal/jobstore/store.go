// Package jobstore keeps the authoritative table of dubbing jobs in memory.
//
// Every mutation goes through Update, which validates the status graph and
// an optional status precondition under the job's own lock. Reads hand out
// deep copies so callers never observe a job mid-update.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/timmy/autodub/internal/domain"
)

// ErrDuplicateJob is returned by Create when the id is already taken.
var ErrDuplicateJob = errors.New("job already exists")

// Store is the job table used by the orchestrator and the HTTP layer.
type Store interface {
	Create(ctx context.Context, job *domain.Job) (string, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	Update(ctx context.Context, id string, p Patch) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	// Expect, when non-empty, requires the current status to be one of
	// these values. Used for atomic check-and-flip of stage requests.
	Expect []domain.JobStatus

	Status        *domain.JobStatus
	Progress      *int
	Message       *string
	VideoFilename *string
	VideoPath     *string
	AudioPath     *string
	Transcript    *domain.Transcript
	VoiceSettings *domain.VoiceSettings
	VoiceStats    *domain.VoiceStats
	VoiceoverPath *string
	OutputPath    *string
	OutputURL     *string
	Error         *string
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

type entry struct {
	mu  sync.Mutex
	job *domain.Job
}

// MemoryStore is a Store backed by a map with one mutex per job.
// The index lock is only held for lookups and inserts.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*entry

	snapshotter Snapshotter
	snapMu      sync.Mutex
	now         func() time.Time
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithSnapshotter sets the sink used by Snapshot and Restore.
func WithSnapshotter(s Snapshotter) Option {
	return func(m *MemoryStore) { m.snapshotter = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *MemoryStore) { m.now = now }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	m := &MemoryStore{
		jobs: make(map[string]*entry),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MemoryStore) timestamp() time.Time {
	return m.now().UTC().Truncate(time.Microsecond)
}

// Create inserts a new job. An empty ID gets a fresh UUID and an empty
// status defaults to pending.
func (m *MemoryStore) Create(ctx context.Context, job *domain.Job) (string, error) {
	j := job.Clone()
	if j == nil {
		j = &domain.Job{}
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = domain.JobStatusPending
	}
	if !domain.IsInitial(j.Status) {
		return "", fmt.Errorf("%w: cannot create job in status %s", domain.ErrInvalidTransition, j.Status)
	}
	j.Progress = clampProgress(j.Progress)
	now := m.timestamp()
	j.CreatedAt = now
	j.UpdatedAt = now

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.jobs[j.ID]; exists {
		return "", fmt.Errorf("%w: %s", ErrDuplicateJob, j.ID)
	}
	m.jobs[j.ID] = &entry{job: j}
	return j.ID, nil
}

func (m *MemoryStore) lookup(id string) (*entry, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
	}
	return e, nil
}

// Get returns a copy of the job.
func (m *MemoryStore) Get(ctx context.Context, id string) (*domain.Job, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job.Clone(), nil
}

// Update applies p atomically and returns the updated copy.
//
// A failed precondition or an illegal status change leaves the job
// untouched and returns an error wrapping domain.ErrInvalidTransition.
// Progress never decreases within a status and resets when status changes.
func (m *MemoryStore) Update(ctx context.Context, id string, p Patch) (*domain.Job, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cur := e.job

	if len(p.Expect) > 0 && !containsStatus(p.Expect, cur.Status) {
		return nil, fmt.Errorf("%w: job %s is %s, expected one of %v", domain.ErrInvalidTransition, id, cur.Status, p.Expect)
	}

	next := cur.Clone()
	if p.Status != nil && *p.Status != cur.Status {
		if !domain.CanTransition(cur.Status, *p.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, cur.Status, *p.Status)
		}
		next.Status = *p.Status
		next.Progress = 0
		if p.Progress != nil {
			next.Progress = clampProgress(*p.Progress)
		}
	} else if p.Progress != nil {
		if v := clampProgress(*p.Progress); v > next.Progress {
			next.Progress = v
		}
	}

	setString(&next.Message, p.Message)
	setString(&next.VideoFilename, p.VideoFilename)
	setString(&next.VideoPath, p.VideoPath)
	setString(&next.AudioPath, p.AudioPath)
	setString(&next.VoiceoverPath, p.VoiceoverPath)
	setString(&next.OutputPath, p.OutputPath)
	setString(&next.OutputURL, p.OutputURL)
	setString(&next.Error, p.Error)
	if p.Transcript != nil {
		next.Transcript = p.Transcript.Clone()
	}
	if p.VoiceSettings != nil {
		vs := *p.VoiceSettings
		next.VoiceSettings = &vs
	}
	if p.VoiceStats != nil {
		st := *p.VoiceStats
		next.VoiceStats = &st
	}
	next.UpdatedAt = m.timestamp()

	e.job = next
	return next.Clone(), nil
}

// List returns copies of all jobs ordered by creation time.
func (m *MemoryStore) List(ctx context.Context) ([]*domain.Job, error) {
	m.mu.RLock()
	entries := make([]*entry, 0, len(m.jobs))
	for _, e := range m.jobs {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	jobs := make([]*domain.Job, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		jobs = append(jobs, e.job.Clone())
		e.mu.Unlock()
	}
	sort.Slice(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
	return jobs, nil
}

// CountByStatus returns the number of jobs per status.
func (m *MemoryStore) CountByStatus(ctx context.Context) map[domain.JobStatus]int {
	jobs, _ := m.List(ctx)
	counts := make(map[domain.JobStatus]int)
	for _, j := range jobs {
		counts[j.Status]++
	}
	return counts
}

func containsStatus(list []domain.JobStatus, s domain.JobStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
