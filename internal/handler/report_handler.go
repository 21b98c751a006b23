package handler

import (
	"net/http"
	"time"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	reportService service.ReportService
}

func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	reportRoles := middleware.RequireRole(
		model.RolePurchasing, model.RolePurchasingManager, model.RoleAdmin,
	)
	router.GET("/reports", reportRoles, h.GetReport)
}

// GetReport handles GET /reports
// @Summary      Get procurement dashboard report
// @Description  Status breakdown, top departments, category trends and lead time bounded by time
// @Tags         reports
// @Produce      json
// @Security     BearerAuth
// @Param        start_date  query  string  false  "Start Date (RFC3339)"
// @Param        end_date    query  string  false  "End Date (RFC3339)"
// @Success      200  {object}  response.Response{data=service.ProcurementReport}
// @Failure      400  {object}  response.Response
// @Router       /reports [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	startDateStr := c.Query("start_date")
	endDateStr := c.Query("end_date")

	var startDate, endDate time.Time
	var err error

	// Default to current month if no dates are provided
	now := time.Now()
	if startDateStr == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	} else {
		startDate, err = time.Parse(time.RFC3339, startDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid start_date format, expected RFC3339"))
			return
		}
	}

	if endDateStr == "" {
		endDate = now
	} else {
		endDate, err = time.Parse(time.RFC3339, endDateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "invalid end_date format, expected RFC3339"))
			return
		}
	}

	report, err := h.reportService.GetReport(c.Request.Context(), startDate, endDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, report))
}
