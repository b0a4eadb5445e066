package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ImportJobStatusPending    = "pending"
	ImportJobStatusProcessing = "processing"
	ImportJobStatusCompleted  = "completed"
	ImportJobStatusFailed     = "failed"
)

// ImportRowError records why a single CSV row was rejected. Row 0 is
// reserved for failures that ended the job before row processing.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportRowErrors is stored as a JSON column so the ordered error list
// travels with the job row.
type ImportRowErrors []ImportRowError

func (e ImportRowErrors) Value() (driver.Value, error) {
	if e == nil {
		e = ImportRowErrors{}
	}
	b, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (e *ImportRowErrors) Scan(value interface{}) error {
	if value == nil {
		*e = ImportRowErrors{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, e)
	case string:
		return json.Unmarshal([]byte(v), e)
	default:
		return fmt.Errorf("unsupported type for import row errors: %T", value)
	}
}

// ImportJob is the persisted lifecycle of one bulk import run.
// Status moves pending -> processing -> completed|failed and never leaves a
// terminal state. success_count + failed_count == processed_rows at every
// persisted snapshot.
type ImportJob struct {
	ID            int             `gorm:"primaryKey;autoIncrement;column:id" json:"-"`
	JobID         string          `gorm:"column:job_id;type:char(36);not null;uniqueIndex" json:"jobId"`
	Status        string          `gorm:"column:status;type:varchar(20);not null;default:'pending'" json:"status"`
	TotalRows     int             `gorm:"column:total_rows;not null;default:0" json:"totalRows"`
	ProcessedRows int             `gorm:"column:processed_rows;not null;default:0" json:"processedRows"`
	SuccessCount  int             `gorm:"column:success_count;not null;default:0" json:"successCount"`
	FailedCount   int             `gorm:"column:failed_count;not null;default:0" json:"failedCount"`
	Errors        ImportRowErrors `gorm:"column:errors;type:json" json:"errors"`
	SourceFile    string          `gorm:"column:source_file;type:varchar(255)" json:"-"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (ImportJob) TableName() string { return "import_jobs" }

// Terminal reports whether the job reached a final state.
func (j *ImportJob) Terminal() bool {
	return j.Status == ImportJobStatusCompleted || j.Status == ImportJobStatusFailed
}
