package models

// ReportStatus is a derived completeness/review status for class reports.
// SUBMITTED is display-only: it never appears on a stored GradeRecord.
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
	ReportStatusReview    ReportStatus = "REVIEW"
	ReportStatusCompleted ReportStatus = "COMPLETED"
)

// StudentReportRow is one student's completeness line in a class report.
type StudentReportRow struct {
	StudentID     string       `json:"student_id"`
	StudentName   string       `json:"student_name,omitempty"`
	SubjectsCount int          `json:"subjects_count"`
	TotalSubjects int          `json:"total_subjects"`
	Complete      bool         `json:"complete"`
	Status        ReportStatus `json:"status"`
	CanPublish    bool         `json:"can_publish"`
}

// ClassReport aggregates all grade records for a class/term/year into a
// reviewer-facing view. Status derivation is lenient: one COMPLETED student
// marks the whole class COMPLETED.
type ClassReport struct {
	ClassID       string             `json:"class_id"`
	Term          Term               `json:"term"`
	AcademicYear  string             `json:"academic_year"`
	TotalSubjects int                `json:"total_subjects"`
	Students      []StudentReportRow `json:"students"`
	Status        ReportStatus       `json:"status"`
	CanPublish    bool               `json:"can_publish"`
}
