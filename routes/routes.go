package routes

import (
	"ngo-report-api/controllers"
	"ngo-report-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "NGO Reporting API is running",
			})
		})

		// Report ingestion
		api.POST("/report", controllers.SubmitReport)
		api.POST("/reports/upload", controllers.UploadBulkReports)
		api.GET("/job-status/:jobId", controllers.GetJobStatus)

		// Dashboard aggregation
		api.GET("/dashboard", controllers.GetDashboardData)

		// Admin routes (require authentication)
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware())
		{
			admin.GET("/import-jobs", controllers.ListImportJobs)
		}
	}
}
