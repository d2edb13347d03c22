package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/service"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
	"github.com/mensah-dev/school-results-api/pkg/response"
)

// ReportHandler exposes class report and ranking endpoints.
type ReportHandler struct {
	reports  *service.ReportService
	rankings *service.RankingService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports *service.ReportService, rankings *service.RankingService) *ReportHandler {
	return &ReportHandler{reports: reports, rankings: rankings}
}

// ClassReport godoc
// @Summary Per-student completeness report for a class
// @Tags Reports
// @Produce json
// @Param classId path string true "Class ID"
// @Param term query string true "Term"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /reports/class/{classId} [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("classId")
	term := models.Term(c.Query("term"))
	academicYear := c.Query("academicYear")
	if academicYear == "" || !term.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term and academicYear are required"))
		return
	}
	report, err := h.reports.BuildClassReport(c.Request.Context(), classID, term, academicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Ranking godoc
// @Summary Class ranking by average final score
// @Tags Reports
// @Produce json
// @Param classId path string true "Class ID"
// @Param term query string true "Term"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /reports/class/{classId}/ranking [get]
func (h *ReportHandler) Ranking(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Param("classId")
	term := models.Term(c.Query("term"))
	academicYear := c.Query("academicYear")
	if academicYear == "" || !term.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term and academicYear are required"))
		return
	}
	ranking, err := h.rankings.Rank(c.Request.Context(), classID, term, academicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ranking, nil)
}
