package services

import (
	"errors"

	"ngo-report-api/config"
	"ngo-report-api/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrImportJobNotFound = errors.New("import job not found")

// ImportJobService persists import job lifecycle state. The import pipeline
// is the sole writer of a running job; everything else reads snapshots.
type ImportJobService struct {
	db *gorm.DB
}

func NewImportJobService(db *gorm.DB) *ImportJobService {
	if db == nil {
		db = config.DB
	}
	return &ImportJobService{db: db}
}

// Create inserts a pending job with a fresh identifier, before any parsing
// has happened.
func (s *ImportJobService) Create(sourceFile string) (*models.ImportJob, error) {
	job := &models.ImportJob{
		JobID:      uuid.NewString(),
		Status:     models.ImportJobStatusPending,
		Errors:     models.ImportRowErrors{},
		SourceFile: sourceFile,
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (s *ImportJobService) GetByJobID(jobID string) (*models.ImportJob, error) {
	var job models.ImportJob
	if err := s.db.Where("job_id = ?", jobID).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrImportJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ImportJobService) MarkProcessing(jobID string) error {
	return s.update(jobID, map[string]interface{}{
		"status": models.ImportJobStatusProcessing,
	})
}

// SetTotalRows persists the progress denominator as soon as parsing
// completes, independent of how long row processing takes.
func (s *ImportJobService) SetTotalRows(jobID string, total int) error {
	return s.update(jobID, map[string]interface{}{
		"total_rows": total,
	})
}

// SaveProgress writes one progress snapshot. Counts always satisfy
// success + failed == processed.
func (s *ImportJobService) SaveProgress(jobID string, processed, success, failed int, rowErrors models.ImportRowErrors) error {
	return s.update(jobID, map[string]interface{}{
		"processed_rows": processed,
		"success_count":  success,
		"failed_count":   failed,
		"errors":         rowErrors,
	})
}

// Finish moves the job to a terminal status together with its final counts
// and error list.
func (s *ImportJobService) Finish(jobID, status string, processed, success, failed int, rowErrors models.ImportRowErrors) error {
	return s.update(jobID, map[string]interface{}{
		"status":         status,
		"processed_rows": processed,
		"success_count":  success,
		"failed_count":   failed,
		"errors":         rowErrors,
	})
}

// MarkFailed ends the job in failed state, replacing only the error list.
// Used for failures that occur before or outside row processing.
func (s *ImportJobService) MarkFailed(jobID string, rowErrors models.ImportRowErrors) error {
	return s.update(jobID, map[string]interface{}{
		"status": models.ImportJobStatusFailed,
		"errors": rowErrors,
	})
}

// update applies changes to a job that has not reached a terminal state.
// Terminal jobs are immutable, so the guard makes stray late writes no-ops
// that surface as ErrImportJobNotFound.
func (s *ImportJobService) update(jobID string, changes map[string]interface{}) error {
	res := s.db.Model(&models.ImportJob{}).
		Where("job_id = ? AND status IN ?", jobID, []string{models.ImportJobStatusPending, models.ImportJobStatusProcessing}).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrImportJobNotFound
	}
	return nil
}

// List returns jobs newest-first for the admin listing endpoint.
func (s *ImportJobService) List(limit, offset int) ([]models.ImportJob, int64, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.Model(&models.ImportJob{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []models.ImportJob
	err := s.db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}
