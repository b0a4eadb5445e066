package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ngo-report-api/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const csvHeader = "ngoId,month,peopleHelped,eventsConducted,fundsUtilized\n"

func newImportService(db *gorm.DB) (*ReportImportService, *ImportJobService) {
	jobs := NewImportJobService(db)
	return &ReportImportService{
		jobs:          jobs,
		reports:       NewReportService(db),
		progressEvery: 10,
	}, jobs
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reports.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func runImport(t *testing.T, svc *ReportImportService, jobs *ImportJobService, path string) *models.ImportJob {
	t.Helper()
	job, err := jobs.Create(path)
	require.NoError(t, err)
	svc.Process(context.Background(), job.JobID, path)

	final, err := jobs.GetByJobID(job.JobID)
	require.NoError(t, err)
	return final
}

func TestProcess_AllRowsValid(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"NGO002,2024-01,200,8,75000\n"+
		"NGO003,2024-01,100,3,30000\n")

	final := runImport(t, svc, jobs, path)

	assert.Equal(t, models.ImportJobStatusCompleted, final.Status)
	assert.Equal(t, 3, final.TotalRows)
	assert.Equal(t, 3, final.ProcessedRows)
	assert.Equal(t, 3, final.SuccessCount)
	assert.Equal(t, 0, final.FailedCount)
	assert.Empty(t, final.Errors)

	var reports []models.Report
	require.NoError(t, db.Order("ngo_id").Find(&reports).Error)
	require.Len(t, reports, 3)
	assert.Equal(t, "NGO001", reports[0].NgoID)
	assert.True(t, reports[1].FundsUtilized.Equal(decimal.NewFromInt(75000)))

	// The uploaded file is released once the job is terminal.
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcess_RowFailuresDoNotAbortJob(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"NGO002,2024-01,200,8,-10\n"+
		"NGO003,2024-01,100,3,30000\n")

	final := runImport(t, svc, jobs, path)

	assert.Equal(t, models.ImportJobStatusCompleted, final.Status)
	assert.Equal(t, 3, final.TotalRows)
	assert.Equal(t, 3, final.ProcessedRows)
	assert.Equal(t, 2, final.SuccessCount)
	assert.Equal(t, 1, final.FailedCount)
	require.Len(t, final.Errors, 1)
	assert.Equal(t, 3, final.Errors[0].Row)
	assert.Equal(t, "Numeric values must be non-negative", final.Errors[0].Message)

	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

// Row numbers count the header as row 1, so data row i (0-based) is i+2.
func TestProcess_RowNumbersMatchFilePosition(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"NGO002,bad-month,200,8,75000\n"+
		"NGO003,2024-01,oops,3,30000\n"+
		",2024-01,1,1,1\n")

	final := runImport(t, svc, jobs, path)

	require.Len(t, final.Errors, 3)
	assert.Equal(t, models.ImportRowErrors{
		{Row: 3, Message: "Invalid month format. Use YYYY-MM"},
		{Row: 4, Message: "Invalid numeric values"},
		{Row: 5, Message: "Missing required fields"},
	}, final.Errors)
}

func TestProcess_AllRowsFailedMarksJobFailed(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-13x,150,5,50000\n"+
		"NGO002,nope,200,8,75000\n")

	final := runImport(t, svc, jobs, path)

	assert.Equal(t, models.ImportJobStatusFailed, final.Status)
	assert.Equal(t, 2, final.TotalRows)
	assert.Equal(t, 2, final.FailedCount)
	assert.Equal(t, 0, final.SuccessCount)
}

// A header-only file has failedCount == totalRows == 0, which the final
// status rule maps to failed. Kept deliberately.
func TestProcess_HeaderOnlyFileLandsInFailed(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	final := runImport(t, svc, jobs, writeCSV(t, csvHeader))

	assert.Equal(t, models.ImportJobStatusFailed, final.Status)
	assert.Equal(t, 0, final.TotalRows)
	assert.Equal(t, 0, final.ProcessedRows)
	assert.Equal(t, 0, final.FailedCount)
	assert.Empty(t, final.Errors)
}

func TestProcess_DuplicateKeysInOneFileUpsert(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"NGO001,2024-01,300,10,90000\n")

	final := runImport(t, svc, jobs, path)

	assert.Equal(t, models.ImportJobStatusCompleted, final.Status)
	assert.Equal(t, 2, final.SuccessCount)

	var reports []models.Report
	require.NoError(t, db.Find(&reports).Error)
	require.Len(t, reports, 1)
	assert.Equal(t, 300, reports[0].PeopleHelped)
	assert.True(t, reports[0].FundsUtilized.Equal(decimal.NewFromInt(90000)))
}

func TestProcess_BlankLinesSkipped(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"\n"+
		"NGO002,2024-01,200,8,75000\n")

	final := runImport(t, svc, jobs, path)

	assert.Equal(t, 2, final.TotalRows)
	assert.Equal(t, 2, final.SuccessCount)
}

func TestProcess_UnreadableFileIsCatastrophic(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	job, err := jobs.Create("does-not-exist.csv")
	require.NoError(t, err)

	svc.Process(context.Background(), job.JobID, filepath.Join(t.TempDir(), "does-not-exist.csv"))

	final, err := jobs.GetByJobID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusFailed, final.Status)
	// totalRows was never learned; callers treat it as unknown.
	assert.Equal(t, 0, final.TotalRows)
	require.Len(t, final.Errors, 1)
	assert.Equal(t, 0, final.Errors[0].Row)
	assert.NotEmpty(t, final.Errors[0].Message)
}

func TestProcess_UnknownJobIsSilentlySkipped(t *testing.T) {
	db := newTestDB(t)
	svc, _ := newImportService(db)

	path := writeCSV(t, csvHeader+"NGO001,2024-01,150,5,50000\n")
	svc.Process(context.Background(), "no-such-job", path)

	// No report rows were written, but the file is still released.
	var count int64
	require.NoError(t, db.Model(&models.Report{}).Count(&count).Error)
	assert.Zero(t, count)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

// recordingJobStore observes progress snapshots while delegating to the real
// job store.
type recordingJobStore struct {
	*ImportJobService
	progressAt []int
}

func (r *recordingJobStore) SaveProgress(jobID string, processed, success, failed int, rowErrors models.ImportRowErrors) error {
	r.progressAt = append(r.progressAt, processed)
	return r.ImportJobService.SaveProgress(jobID, processed, success, failed, rowErrors)
}

func TestProcess_ProgressPersistedEveryTenRows(t *testing.T) {
	db := newTestDB(t)
	jobs := NewImportJobService(db)
	recorder := &recordingJobStore{ImportJobService: jobs}
	svc := &ReportImportService{
		jobs:          recorder,
		reports:       NewReportService(db),
		progressEvery: 10,
	}

	content := csvHeader
	for i := 0; i < 25; i++ {
		content += "NGO" + string(rune('A'+i%26)) + ",2024-01,1,1,1\n"
	}
	path := writeCSV(t, content)

	job, err := jobs.Create(path)
	require.NoError(t, err)
	svc.Process(context.Background(), job.JobID, path)

	// Snapshots land at multiples of ten and on the last row, never per row.
	assert.Equal(t, []int{10, 20, 25}, recorder.progressAt)

	final, err := jobs.GetByJobID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusCompleted, final.Status)
	assert.Equal(t, 25, final.ProcessedRows)
}

func TestEnqueue_ReturnsImmediatelyAndRunsInBackground(t *testing.T) {
	db := newTestDB(t)
	svc, jobs := newImportService(db)

	path := writeCSV(t, csvHeader+
		"NGO001,2024-01,150,5,50000\n"+
		"NGO002,2024-01,200,8,75000\n")

	job, err := svc.Enqueue(path)
	require.NoError(t, err)
	require.NotEmpty(t, job.JobID)
	assert.Equal(t, models.ImportJobStatusPending, job.Status)

	require.Eventually(t, func() bool {
		loaded, err := jobs.GetByJobID(job.JobID)
		return err == nil && loaded.Terminal()
	}, 5*time.Second, 20*time.Millisecond)

	final, err := jobs.GetByJobID(job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportJobStatusCompleted, final.Status)
	assert.Equal(t, 2, final.SuccessCount)
}
