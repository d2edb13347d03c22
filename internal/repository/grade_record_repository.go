package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mensah-dev/school-results-api/internal/models"
)

const gradeRecordColumns = `id, class_id, subject, term, academic_year, grades, status, submitted_by, submitted_at, reviewed_by, reviewed_at, published_by, published_at`

// GradeRecordRepository persists grade records. The per-student grades map is
// stored as a JSONB document; top-level scope and workflow fields are columns.
type GradeRecordRepository struct {
	db *sqlx.DB
}

// NewGradeRecordRepository creates a new grade record repository.
func NewGradeRecordRepository(db *sqlx.DB) *GradeRecordRepository {
	return &GradeRecordRepository{db: db}
}

// List returns grade records matching the filter.
func (r *GradeRecordRepository) List(ctx context.Context, filter models.RecordFilter) ([]models.GradeRecord, error) {
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_records WHERE 1=1`
	var args []interface{}
	if filter.ClassID != "" {
		query += fmt.Sprintf(" AND class_id = $%d", len(args)+1)
		args = append(args, filter.ClassID)
	}
	if filter.Subject != "" {
		query += fmt.Sprintf(" AND subject = $%d", len(args)+1)
		args = append(args, filter.Subject)
	}
	if filter.Term != "" {
		query += fmt.Sprintf(" AND term = $%d", len(args)+1)
		args = append(args, filter.Term)
	}
	if filter.AcademicYear != "" {
		query += fmt.Sprintf(" AND academic_year = $%d", len(args)+1)
		args = append(args, filter.AcademicYear)
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}
	query += " ORDER BY subject ASC"
	var records []models.GradeRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list grade records: %w", err)
	}
	return records, nil
}

// GetByID returns a single record by its identifier.
func (r *GradeRecordRepository) GetByID(ctx context.Context, id string) (*models.GradeRecord, error) {
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_records WHERE id = $1`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("get grade record: %w", err)
	}
	return &record, nil
}

// FindByKey returns the record for the (class, subject, term, year) identity
// key, or sql.ErrNoRows when none exists.
func (r *GradeRecordRepository) FindByKey(ctx context.Context, classID, subject string, term models.Term, academicYear string) (*models.GradeRecord, error) {
	query := `SELECT ` + gradeRecordColumns + ` FROM grade_records
WHERE class_id = $1 AND subject = $2 AND term = $3 AND academic_year = $4`
	var record models.GradeRecord
	if err := r.db.GetContext(ctx, &record, query, classID, subject, term, academicYear); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find grade record: %w", err)
	}
	return &record, nil
}

// Create inserts a new grade record with generated defaults.
func (r *GradeRecordRepository) Create(ctx context.Context, record *models.GradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO grade_records (` + gradeRecordColumns + `)
VALUES (:id, :class_id, :subject, :term, :academic_year, :grades, :status, :submitted_by, :submitted_at, :reviewed_by, :reviewed_at, :published_by, :published_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create grade record: %w", err)
	}
	return nil
}

// Replace overwrites the grades document and submission stamps of an existing
// record. Used for teacher re-submission while the record is still editable.
func (r *GradeRecordRepository) Replace(ctx context.Context, record *models.GradeRecord) error {
	const query = `UPDATE grade_records
SET grades = :grades, status = :status, submitted_by = :submitted_by, submitted_at = :submitted_at
WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("replace grade record: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateRecordParams defines the mutable workflow fields.
type UpdateRecordParams struct {
	Status      *models.RecordStatus
	ReviewedBy  *string
	ReviewedAt  *time.Time
	PublishedBy *string
	PublishedAt *time.Time
}

// Update persists the provided workflow changes for a record.
func (r *GradeRecordRepository) Update(ctx context.Context, id string, params UpdateRecordParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.ReviewedBy != nil {
		set = append(set, fmt.Sprintf("reviewed_by = $%d", argPos))
		args = append(args, *params.ReviewedBy)
		argPos++
	}
	if params.ReviewedAt != nil {
		set = append(set, fmt.Sprintf("reviewed_at = $%d", argPos))
		args = append(args, *params.ReviewedAt)
		argPos++
	}
	if params.PublishedBy != nil {
		set = append(set, fmt.Sprintf("published_by = $%d", argPos))
		args = append(args, *params.PublishedBy)
		argPos++
	}
	if params.PublishedAt != nil {
		set = append(set, fmt.Sprintf("published_at = $%d", argPos))
		args = append(args, *params.PublishedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE grade_records SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update grade record: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PublishScope transitions every not-yet-published record of a class/term/year
// to PUBLISHED in a single statement so readers never observe a half-published
// class. Already published rows keep their original publish stamps. Returns
// the ids that transitioned.
func (r *GradeRecordRepository) PublishScope(ctx context.Context, classID string, term models.Term, academicYear, publishedBy string, publishedAt time.Time) ([]string, error) {
	const query = `UPDATE grade_records
SET status = $1, published_by = $2, published_at = $3
WHERE class_id = $4 AND term = $5 AND academic_year = $6 AND status <> $1
RETURNING id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query,
		models.RecordStatusPublished, publishedBy, publishedAt,
		classID, term, academicYear,
	); err != nil {
		return nil, fmt.Errorf("publish grade records: %w", err)
	}
	return ids, nil
}

// Delete removes a single record.
func (r *GradeRecordRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM grade_records WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete grade record: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
