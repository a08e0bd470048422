package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"github.com/timmy/autodub/internal/domain"
	"github.com/timmy/autodub/internal/jobstore"
)

// JobSnapshotRepository stores job table snapshots in the database.
// It implements jobstore.Snapshotter.
type JobSnapshotRepository struct {
	db *gorm.DB
}

// NewJobSnapshotRepository creates a new JobSnapshotRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *JobSnapshotRepository: repository instance bound to db.
func NewJobSnapshotRepository(db *gorm.DB) *JobSnapshotRepository {
	return &JobSnapshotRepository{db: db}
}

// Save replaces the stored snapshot with records in one transaction.
func (r *JobSnapshotRepository) Save(ctx context.Context, records map[string]jobstore.Record) error {
	rows := make([]domain.JobSnapshot, 0, len(records))
	for id, rec := range records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal job %s: %w", id, err)
		}
		rows = append(rows, domain.JobSnapshot{
			JobID:   id,
			Status:  domain.JobStatus(rec.Status),
			Payload: string(payload),
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&domain.JobSnapshot{}).Error; err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	})
}

// Load returns the stored snapshot keyed by job id.
func (r *JobSnapshotRepository) Load(ctx context.Context) (map[string]jobstore.Record, error) {
	var rows []domain.JobSnapshot
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	records := make(map[string]jobstore.Record, len(rows))
	for _, row := range rows {
		var rec jobstore.Record
		if err := json.Unmarshal([]byte(row.Payload), &rec); err != nil {
			return nil, fmt.Errorf("decode job %s: %w", row.JobID, err)
		}
		records[row.JobID] = rec
	}
	return records, nil
}

// CountByStatus returns snapshot row counts per status.
func (r *JobSnapshotRepository) CountByStatus(ctx context.Context) (map[domain.JobStatus]int64, error) {
	var results []struct {
		Status domain.JobStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&domain.JobSnapshot{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.JobStatus]int64, len(results))
	for _, res := range results {
		counts[res.Status] = res.Count
	}
	return counts, nil
}
