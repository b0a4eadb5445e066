package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report represents one NGO's reported figures for one month.
// The (ngo_id, month) pair is unique; resubmitting for an existing pair
// updates the numeric columns in place.
type Report struct {
	ReportID        int             `gorm:"primaryKey;autoIncrement;column:report_id" json:"report_id"`
	NgoID           string          `gorm:"column:ngo_id;type:varchar(64);not null;uniqueIndex:uq_reports_ngo_month" json:"ngoId"`
	Month           string          `gorm:"column:month;type:char(7);not null;uniqueIndex:uq_reports_ngo_month" json:"month"`
	PeopleHelped    int             `gorm:"column:people_helped;not null" json:"peopleHelped"`
	EventsConducted int             `gorm:"column:events_conducted;not null" json:"eventsConducted"`
	FundsUtilized   decimal.Decimal `gorm:"column:funds_utilized;type:decimal(14,2);not null" json:"fundsUtilized"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Report) TableName() string { return "reports" }

// ReportInput is a validated report payload, shared by the single-submit
// endpoint and the bulk import pipeline.
type ReportInput struct {
	NgoID           string
	Month           string
	PeopleHelped    int
	EventsConducted int
	FundsUtilized   decimal.Decimal
}
