package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// RecordStatus captures the review/publication lifecycle of a grade record.
type RecordStatus string

const (
	RecordStatusPending   RecordStatus = "PENDING"
	RecordStatusReview    RecordStatus = "REVIEW"
	RecordStatusCompleted RecordStatus = "COMPLETED"
	RecordStatusPublished RecordStatus = "PUBLISHED"
	// RecordStatusDeclined marks a rejected sheet; teachers may resubmit
	// over it.
	RecordStatusDeclined RecordStatus = "DECLINED"
)

// StudentGrade is one student's scores within a grade record. ContinuousScore
// and Score are derived; they are recomputed from ContinuousAssessment and
// ExamScore on every write, never edited independently.
type StudentGrade struct {
	ContinuousAssessment map[ComponentID]float64 `json:"continuousAssessment"`
	ExamScore            float64                 `json:"examScore"`
	ContinuousScore      float64                 `json:"continuousScore"`
	Score                int                     `json:"score"`
	Grade                LetterGrade             `json:"grade,omitempty"`
	Remarks              string                  `json:"remarks,omitempty"`
}

// StudentGradeMap stores per-student grades as a JSONB document column.
type StudentGradeMap map[string]StudentGrade

// Value implements driver.Valuer.
func (m StudentGradeMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *StudentGradeMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(StudentGradeMap)
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unexpected type %T for student grade map", value)
	}
	return json.Unmarshal(raw, m)
}

// GradeRecord is one subject's score sheet for a class/term/year. Identity key
// is (ClassID, Subject, Term, AcademicYear); at most one record exists per key.
type GradeRecord struct {
	ID           string          `db:"id" json:"id"`
	ClassID      string          `db:"class_id" json:"class_id"`
	Subject      string          `db:"subject" json:"subject"`
	Term         Term            `db:"term" json:"term"`
	AcademicYear string          `db:"academic_year" json:"academic_year"`
	Grades       StudentGradeMap `db:"grades" json:"grades"`
	Status       RecordStatus    `db:"status" json:"status"`
	SubmittedBy  string          `db:"submitted_by" json:"submitted_by"`
	SubmittedAt  time.Time       `db:"submitted_at" json:"submitted_at"`
	ReviewedBy   *string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	PublishedBy  *string         `db:"published_by" json:"published_by,omitempty"`
	PublishedAt  *time.Time      `db:"published_at" json:"published_at,omitempty"`
}

// RecordFilter scopes grade record queries.
type RecordFilter struct {
	ClassID      string
	Subject      string
	Term         Term
	AcademicYear string
	Status       RecordStatus
}

// ScoreViolation details one out-of-range raw score. Carried on validation
// errors so callers can render field-level detail.
type ScoreViolation struct {
	StudentID string  `json:"student_id"`
	Component string  `json:"component"`
	Score     float64 `json:"score"`
	Limit     float64 `json:"limit"`
}

// PublishFailure identifies a record that could not be transitioned during a
// class-wide publish.
type PublishFailure struct {
	RecordID string `json:"record_id"`
	Reason   string `json:"reason"`
}

// PublishResult summarises a class-wide publish.
type PublishResult struct {
	PublishedIDs []string         `json:"published_ids"`
	AlreadyDone  bool             `json:"already_done"`
	Failures     []PublishFailure `json:"failures,omitempty"`
}
