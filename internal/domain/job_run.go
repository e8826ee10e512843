package domain

import "time"

// JobRun remembers when a scheduled job last completed so its interval
// survives restarts.
type JobRun struct {
	Name      string    `gorm:"type:varchar(64);primaryKey"`
	LastRunAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"`
}

// TableName implements the GORM tabler interface.
func (JobRun) TableName() string { return "job_runs" }
