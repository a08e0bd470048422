package domain

import "time"

// JobSnapshot is one row of the database snapshot of the job table.
// Payload holds the JSON-encoded job record.
type JobSnapshot struct {
	JobID   string    `gorm:"primaryKey;type:varchar(64)" json:"job_id"`
	Status  JobStatus `gorm:"type:varchar(32);index" json:"status"`
	Payload string    `gorm:"type:text;not null" json:"payload"`
	SavedAt time.Time `gorm:"autoCreateTime" json:"saved_at"`
}

// TableName specifies the table name for GORM.
// Parameters: none.
// Returns:
//   - string: database table name.
func (JobSnapshot) TableName() string {
	return "job_snapshots"
}
