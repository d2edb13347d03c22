package dto

import "github.com/mensah-dev/school-results-api/internal/models"

// ExportRequest captures POST /results/exports payload.
type ExportRequest struct {
	ClassID      string      `json:"classId"`
	Term         models.Term `json:"term"`
	AcademicYear string      `json:"academicYear"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string                 `json:"id"`
	Status   models.ExportJobStatus `json:"status"`
	Progress int                    `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string                 `json:"id"`
	Status    models.ExportJobStatus `json:"status"`
	Progress  int                    `json:"progress"`
	ResultURL *string                `json:"resultUrl,omitempty"`
	Error     *string                `json:"error,omitempty"`
}
