package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"ngo-report-api/config"
	"ngo-report-api/models"
	"ngo-report-api/utils"

	"gorm.io/gorm"
)

// importJobStore is the slice of ImportJobService the pipeline needs.
type importJobStore interface {
	Create(sourceFile string) (*models.ImportJob, error)
	GetByJobID(jobID string) (*models.ImportJob, error)
	MarkProcessing(jobID string) error
	SetTotalRows(jobID string, total int) error
	SaveProgress(jobID string, processed, success, failed int, rowErrors models.ImportRowErrors) error
	Finish(jobID, status string, processed, success, failed int, rowErrors models.ImportRowErrors) error
	MarkFailed(jobID string, rowErrors models.ImportRowErrors) error
}

// reportUpserter is the slice of ReportService the pipeline needs.
type reportUpserter interface {
	Upsert(ctx context.Context, in *models.ReportInput) (*models.Report, bool, error)
}

// ReportImportService runs bulk CSV imports as background jobs. Row
// processing within one job is strictly sequential; jobs from separate
// uploads run concurrently and are independent except for the shared
// reports table.
type ReportImportService struct {
	jobs    importJobStore
	reports reportUpserter

	// progressEvery controls how often a progress snapshot is persisted.
	// Pollers may observe progress up to progressEvery-1 rows stale.
	progressEvery int
}

func NewReportImportService(db *gorm.DB) *ReportImportService {
	if db == nil {
		db = config.DB
	}
	return &ReportImportService{
		jobs:          NewImportJobService(db),
		reports:       NewReportService(db),
		progressEvery: progressEveryFromEnv(),
	}
}

func progressEveryFromEnv() int {
	if raw := strings.TrimSpace(os.Getenv("IMPORT_PROGRESS_EVERY")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 10
}

// Enqueue creates the pending job record for the uploaded file and schedules
// processing in the background. It returns as soon as the job row exists;
// callers observe progress by polling the job id.
func (s *ReportImportService) Enqueue(filePath string) (*models.ImportJob, error) {
	job, err := s.jobs.Create(filePath)
	if err != nil {
		return nil, err
	}
	go s.Process(context.Background(), job.JobID, filePath)
	return job, nil
}

// Process runs one import job to a terminal state. It is the error boundary
// for the background goroutine: nothing escapes to the caller, and the
// uploaded file is deleted on every exit path.
func (s *ReportImportService) Process(ctx context.Context, jobID, filePath string) {
	defer removeFile(filePath)
	defer func() {
		if r := recover(); r != nil {
			log.Printf("import job %s panicked: %v", jobID, r)
			s.failJob(jobID, fmt.Errorf("%v", r))
		}
	}()

	if err := s.run(ctx, jobID, filePath); err != nil {
		log.Printf("import job %s failed: %v", jobID, err)
		s.failJob(jobID, err)
	}
}

// run executes the job state machine. Row-level failures are recorded and
// never returned; a non-nil error means a failure that ends the whole job.
func (s *ReportImportService) run(ctx context.Context, jobID, filePath string) error {
	job, err := s.jobs.GetByJobID(jobID)
	if errors.Is(err, ErrImportJobNotFound) {
		// Should not happen given the enqueue contract.
		log.Printf("import job %s not found, skipping", jobID)
		return nil
	}
	if err != nil {
		return err
	}
	if job.Terminal() {
		log.Printf("import job %s already %s, skipping", jobID, job.Status)
		return nil
	}

	if err := s.jobs.MarkProcessing(jobID); err != nil {
		return err
	}

	rows, err := parseReportRows(filePath)
	if err != nil {
		return err
	}

	totalRows := len(rows)
	if err := s.jobs.SetTotalRows(jobID, totalRows); err != nil {
		return err
	}

	var (
		processed int
		success   int
		failed    int
		rowErrors = models.ImportRowErrors{}
	)

	for i, row := range rows {
		// 1-based position in the original file, counting the header row.
		rowNumber := i + 2

		if input, verr := utils.ParseReportRow(row); verr != nil {
			failed++
			rowErrors = append(rowErrors, models.ImportRowError{Row: rowNumber, Message: verr.Error()})
		} else if _, _, uerr := s.reports.Upsert(ctx, input); uerr != nil {
			failed++
			rowErrors = append(rowErrors, models.ImportRowError{Row: rowNumber, Message: uerr.Error()})
		} else {
			success++
		}
		processed++

		if processed%s.progressEvery == 0 || processed == totalRows {
			if err := s.jobs.SaveProgress(jobID, processed, success, failed, rowErrors); err != nil {
				return err
			}
		}
	}

	// All rows failing marks the whole job failed. This intentionally
	// includes files with zero data rows (0 == 0).
	status := models.ImportJobStatusCompleted
	if failed == totalRows {
		status = models.ImportJobStatusFailed
	}
	if err := s.jobs.Finish(jobID, status, processed, success, failed, rowErrors); err != nil {
		return err
	}

	s.notifyCompletion(jobID, status, totalRows, success, failed)
	return nil
}

// failJob ends the job in failed state with a row-0 error entry. This is the
// only path by which a job can fail without having processed any data rows.
func (s *ReportImportService) failJob(jobID string, cause error) {
	job, err := s.jobs.GetByJobID(jobID)
	if err != nil {
		log.Printf("cannot load import job %s to record failure: %v", jobID, err)
		return
	}
	if job.Terminal() {
		return
	}
	rowErrors := append(job.Errors, models.ImportRowError{Row: 0, Message: cause.Error()})
	if err := s.jobs.MarkFailed(jobID, rowErrors); err != nil {
		log.Printf("cannot mark import job %s failed: %v", jobID, err)
	}
}

// notifyCompletion emails a terminal summary when IMPORT_NOTIFY_EMAILS is
// configured. Best effort: failures are logged, never fatal.
func (s *ReportImportService) notifyCompletion(jobID, status string, total, success, failed int) {
	raw := strings.TrimSpace(os.Getenv("IMPORT_NOTIFY_EMAILS"))
	if raw == "" {
		return
	}
	var recipients []string
	for _, addr := range strings.Split(raw, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}

	subject := fmt.Sprintf("Bulk report import %s: %s", jobID, status)
	body := fmt.Sprintf(
		"<p>Import job <b>%s</b> finished with status <b>%s</b>.</p><p>Rows: %d total, %d succeeded, %d failed.</p>",
		jobID, status, total, success, failed,
	)
	if err := config.SendMail(recipients, subject, body); err != nil {
		log.Printf("import job %s: notification mail failed: %v", jobID, err)
	}
}

// parseReportRows reads the whole CSV into header-mapped rows. Values are
// trimmed; blank lines are skipped; short rows leave missing columns empty
// for the validator to reject.
func parseReportRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv file has no header row")
	}

	header := make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if isBlankRecord(record) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func isBlankRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func removeFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove uploaded file %s: %v", path, err)
	}
}
