package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/service"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
	"github.com/mensah-dev/school-results-api/pkg/response"
)

// ResultsHandler exposes grade record workflow endpoints.
type ResultsHandler struct {
	results *service.ResultsService
}

// NewResultsHandler constructs handler.
func NewResultsHandler(results *service.ResultsService) *ResultsHandler {
	return &ResultsHandler{results: results}
}

// List godoc
// @Summary List grade records
// @Tags Results
// @Produce json
// @Param classId query string false "Filter by class"
// @Param subject query string false "Filter by subject"
// @Param term query string false "Filter by term"
// @Param academicYear query string false "Filter by academic year"
// @Param status query string false "Filter by workflow status"
// @Success 200 {object} response.Envelope
// @Router /results [get]
func (h *ResultsHandler) List(c *gin.Context) {
	filter := models.RecordFilter{
		ClassID:      c.Query("classId"),
		Subject:      c.Query("subject"),
		Term:         models.Term(c.Query("term")),
		AcademicYear: c.Query("academicYear"),
		Status:       models.RecordStatus(c.Query("status")),
	}
	records, err := h.results.ListRecords(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Get godoc
// @Summary Get one grade record
// @Tags Results
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id} [get]
func (h *ResultsHandler) Get(c *gin.Context) {
	record, err := h.results.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Submit godoc
// @Summary Submit a subject score sheet
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.SubmitScoresRequest true "Score sheet payload"
// @Success 201 {object} response.Envelope
// @Router /results [post]
func (h *ResultsHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SubmitScoresRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	record, err := h.results.Submit(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, record, nil)
}

// MarkReview godoc
// @Summary Move a record into review
// @Tags Results
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/review [post]
func (h *ResultsHandler) MarkReview(c *gin.Context) {
	h.transition(c, h.results.MarkReview)
}

// Approve godoc
// @Summary Approve a reviewed record
// @Tags Results
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/approve [post]
func (h *ResultsHandler) Approve(c *gin.Context) {
	h.transition(c, h.results.Approve)
}

// Decline godoc
// @Summary Decline a record
// @Tags Results
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /results/{id}/decline [post]
func (h *ResultsHandler) Decline(c *gin.Context) {
	h.transition(c, h.results.Decline)
}

// Publish godoc
// @Summary Publish every completed record for a class scope
// @Tags Results
// @Produce json
// @Param classId query string true "Class ID"
// @Param term query string true "Term"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /results/publish [post]
func (h *ResultsHandler) Publish(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	classID := c.Query("classId")
	term := models.Term(c.Query("term"))
	academicYear := c.Query("academicYear")
	if classID == "" || academicYear == "" || !term.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "classId, term and academicYear are required"))
		return
	}
	result, err := h.results.Publish(c.Request.Context(), classID, term, academicYear, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a grade record
// @Tags Results
// @Produce json
// @Param id path string true "Record ID"
// @Success 204
// @Router /results/{id} [delete]
func (h *ResultsHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.results.DeleteRecord(c.Request.Context(), c.Param("id"), actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MyResults godoc
// @Summary Published results for one student
// @Tags Results
// @Produce json
// @Param studentId path string true "Student ID"
// @Param term query string true "Term"
// @Param academicYear query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /results/student/{studentId} [get]
func (h *ResultsHandler) MyResults(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	studentID := c.Param("studentId")
	if actor.Role == models.RoleStudent && actor.ID != studentID {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "students may only read their own results"))
		return
	}
	term := models.Term(c.Query("term"))
	academicYear := c.Query("academicYear")
	if academicYear == "" || !term.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "term and academicYear are required"))
		return
	}
	results, err := h.results.StudentResults(c.Request.Context(), studentID, term, academicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, results, nil)
}

func (h *ResultsHandler) transition(c *gin.Context, fn func(ctx context.Context, recordID string, actor models.Actor) (*models.GradeRecord, error)) {
	actor, ok := actorFromContext(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	record, err := fn(c.Request.Context(), c.Param("id"), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
