package controllers

import (
	"net/http"

	"ngo-report-api/services"
	"ngo-report-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetDashboardData returns the month-filtered aggregation consumed by the
// dashboard: overall totals plus a per-NGO breakdown.
func GetDashboardData(c *gin.Context) {
	month := c.Query("month")
	if month == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Month parameter is required"})
		return
	}
	if !utils.MonthPattern.MatchString(month) {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.ErrInvalidMonthFormat.Error()})
		return
	}

	reports, err := services.NewReportService(nil).QueryByMonth(c.Request.Context(), month)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch dashboard data"})
		return
	}

	totalPeopleHelped := 0
	totalEvents := 0
	totalFunds := decimal.Zero
	breakdown := make([]gin.H, 0, len(reports))

	for _, report := range reports {
		totalPeopleHelped += report.PeopleHelped
		totalEvents += report.EventsConducted
		totalFunds = totalFunds.Add(report.FundsUtilized)
		breakdown = append(breakdown, gin.H{
			"ngoId":           report.NgoID,
			"peopleHelped":    report.PeopleHelped,
			"eventsConducted": report.EventsConducted,
			"fundsUtilized":   report.FundsUtilized,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"month":             month,
		"totalNGOs":         len(reports),
		"totalPeopleHelped": totalPeopleHelped,
		"totalEvents":       totalEvents,
		"totalFunds":        totalFunds,
		"ngoBreakdown":      breakdown,
	})
}
