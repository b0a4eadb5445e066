package services

import (
	"context"
	"errors"

	"ngo-report-api/config"
	"ngo-report-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportService owns the reports table. Upsert is the single write path for
// both the form endpoint and the bulk import pipeline, so the two routes
// cannot drift apart.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	if db == nil {
		db = config.DB
	}
	return &ReportService{db: db}
}

// Upsert creates or updates the report keyed by (ngo_id, month) and reports
// whether a new row was created. Concurrent writers to the same key race and
// the later write wins; the unique index plus ON CONFLICT is the only
// safeguard, there is no lost-update detection.
func (s *ReportService) Upsert(ctx context.Context, in *models.ReportInput) (*models.Report, bool, error) {
	var existing models.Report
	err := s.db.WithContext(ctx).
		Where("ngo_id = ? AND month = ?", in.NgoID, in.Month).
		First(&existing).Error

	switch {
	case err == nil:
		updates := map[string]interface{}{
			"people_helped":    in.PeopleHelped,
			"events_conducted": in.EventsConducted,
			"funds_utilized":   in.FundsUtilized,
		}
		if err := s.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
			return nil, false, err
		}
		existing.PeopleHelped = in.PeopleHelped
		existing.EventsConducted = in.EventsConducted
		existing.FundsUtilized = in.FundsUtilized
		return &existing, false, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		report := &models.Report{
			NgoID:           in.NgoID,
			Month:           in.Month,
			PeopleHelped:    in.PeopleHelped,
			EventsConducted: in.EventsConducted,
			FundsUtilized:   in.FundsUtilized,
		}
		// A concurrent creator for the same key degrades to an update here
		// instead of a duplicate-key failure.
		createErr := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ngo_id"}, {Name: "month"}},
			DoUpdates: clause.AssignmentColumns([]string{"people_helped", "events_conducted", "funds_utilized", "updated_at"}),
		}).Create(report).Error
		if createErr != nil {
			return nil, false, createErr
		}
		return report, true, nil

	default:
		return nil, false, err
	}
}

// QueryByMonth returns all reports for the given month ordered by NGO id.
func (s *ReportService) QueryByMonth(ctx context.Context, month string) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where("month = ?", month).
		Order("ngo_id ASC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}
