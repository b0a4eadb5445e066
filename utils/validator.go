// utils/validator.go - Shared report validation
package utils

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"ngo-report-api/models"

	"github.com/shopspring/decimal"
)

// MonthPattern matches the YYYY-MM period format.
var MonthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// Validation failures carry the exact messages surfaced to callers and
// recorded in import job error lists. Both ingestion routes use these, so
// a row rejected in bulk is rejected the same way on the form endpoint.
var (
	ErrMissingRequiredFields = errors.New("Missing required fields")
	ErrInvalidMonthFormat    = errors.New("Invalid month format. Use YYYY-MM")
	ErrInvalidNumericValues  = errors.New("Invalid numeric values")
	ErrNegativeNumericValues = errors.New("Numeric values must be non-negative")
)

// ParseReportRow maps one raw CSV row (column name -> raw string) to a
// normalized report payload. Rules are applied in order and short-circuit
// on the first failure:
//  1. all five columns present and non-empty
//  2. month matches YYYY-MM
//  3. peopleHelped/eventsConducted parse as integers, fundsUtilized as decimal
//  4. all three numeric values are non-negative
func ParseReportRow(row map[string]string) (*models.ReportInput, error) {
	ngoID := strings.TrimSpace(row["ngoId"])
	month := strings.TrimSpace(row["month"])
	peopleRaw := strings.TrimSpace(row["peopleHelped"])
	eventsRaw := strings.TrimSpace(row["eventsConducted"])
	fundsRaw := strings.TrimSpace(row["fundsUtilized"])

	if ngoID == "" || month == "" || peopleRaw == "" || eventsRaw == "" || fundsRaw == "" {
		return nil, ErrMissingRequiredFields
	}
	if !MonthPattern.MatchString(month) {
		return nil, ErrInvalidMonthFormat
	}

	people, peopleErr := strconv.Atoi(peopleRaw)
	events, eventsErr := strconv.Atoi(eventsRaw)
	funds, fundsErr := decimal.NewFromString(fundsRaw)
	if peopleErr != nil || eventsErr != nil || fundsErr != nil {
		return nil, ErrInvalidNumericValues
	}

	input := &models.ReportInput{
		NgoID:           ngoID,
		Month:           month,
		PeopleHelped:    people,
		EventsConducted: events,
		FundsUtilized:   funds,
	}
	if err := checkNonNegative(input); err != nil {
		return nil, err
	}
	return input, nil
}

// ValidateReportInput applies the same rules as ParseReportRow to an
// already-typed payload (the single-submit path, where numeric parsing is
// handled by JSON binding).
func ValidateReportInput(in *models.ReportInput) error {
	if strings.TrimSpace(in.NgoID) == "" || strings.TrimSpace(in.Month) == "" {
		return ErrMissingRequiredFields
	}
	if !MonthPattern.MatchString(strings.TrimSpace(in.Month)) {
		return ErrInvalidMonthFormat
	}
	return checkNonNegative(in)
}

func checkNonNegative(in *models.ReportInput) error {
	if in.PeopleHelped < 0 || in.EventsConducted < 0 || in.FundsUtilized.IsNegative() {
		return ErrNegativeNumericValues
	}
	return nil
}
