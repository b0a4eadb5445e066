package controllers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"ngo-report-api/models"
	"ngo-report-api/services"
	"ngo-report-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// SubmitReportRequest uses pointers for the numeric fields so a missing
// field is distinguishable from an explicit zero.
type SubmitReportRequest struct {
	NgoID           string           `json:"ngoId"`
	Month           string           `json:"month"`
	PeopleHelped    *int             `json:"peopleHelped"`
	EventsConducted *int             `json:"eventsConducted"`
	FundsUtilized   *decimal.Decimal `json:"fundsUtilized"`
}

// SubmitReport handles single synchronous report submission. It shares the
// validator and the upsert path with the bulk import pipeline.
func SubmitReport(c *gin.Context) {
	var req SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrInvalidNumericValues.Error()})
		return
	}

	if strings.TrimSpace(req.NgoID) == "" || strings.TrimSpace(req.Month) == "" ||
		req.PeopleHelped == nil || req.EventsConducted == nil || req.FundsUtilized == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrMissingRequiredFields.Error()})
		return
	}

	input := &models.ReportInput{
		NgoID:           strings.TrimSpace(req.NgoID),
		Month:           strings.TrimSpace(req.Month),
		PeopleHelped:    *req.PeopleHelped,
		EventsConducted: *req.EventsConducted,
		FundsUtilized:   *req.FundsUtilized,
	}
	if err := utils.ValidateReportInput(input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, created, err := services.NewReportService(nil).Upsert(c.Request.Context(), input)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit report"})
		return
	}

	if created {
		c.JSON(http.StatusCreated, gin.H{
			"message": "Report submitted successfully",
			"report":  report,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Report updated successfully",
		"report":  report,
	})
}

// UploadBulkReports accepts a CSV upload, creates the import job and returns
// immediately. Processing happens in the background; clients poll the job id.
func UploadBulkReports(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if filepath.Ext(strings.ToLower(header.Filename)) != ".csv" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV files are allowed"})
		return
	}

	uploadDir := os.Getenv("UPLOAD_PATH")
	if uploadDir == "" {
		uploadDir = "uploads"
	}
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return
	}

	dstPath := filepath.Join(uploadDir, utils.GenerateUniqueFilename(uploadDir, header.Filename))
	if err := c.SaveUploadedFile(header, dstPath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store uploaded file"})
		return
	}

	job, err := services.NewReportImportService(nil).Enqueue(dstPath)
	if err != nil {
		os.Remove(dstPath)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start import"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "File uploaded successfully. Processing started.",
		"jobId":   job.JobID,
	})
}

// GetJobStatus returns the current job snapshot verbatim. Freshness is
// bounded by the pipeline's progress-persistence cadence.
func GetJobStatus(c *gin.Context) {
	jobID := c.Param("jobId")

	job, err := services.NewImportJobService(nil).GetByJobID(jobID)
	if err != nil {
		if errors.Is(err, services.ErrImportJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch job status"})
		return
	}

	c.JSON(http.StatusOK, job)
}

// ListImportJobs returns past import jobs newest-first (admin only).
func ListImportJobs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	jobs, total, err := services.NewImportJobService(nil).List(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list import jobs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"total": total,
	})
}
