package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mensah-dev/school-results-api/internal/models"
)

// CatalogRepository reads the class/subject catalog and student directory
// maintained by the surrounding portal. This service never writes to them.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a read-only catalog repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// RequiredSubjects returns the subjects a class is expected to have results
// for, with display names resolved.
func (r *CatalogRepository) RequiredSubjects(ctx context.Context, classID string) ([]models.RequiredSubject, error) {
	const query = `SELECT cs.subject_id, s.name AS subject_name
FROM class_subjects cs
JOIN subjects s ON s.id = cs.subject_id
WHERE cs.class_id = $1
ORDER BY s.name ASC`
	var subjects []models.RequiredSubject
	if err := r.db.SelectContext(ctx, &subjects, query, classID); err != nil {
		return nil, fmt.Errorf("list required subjects: %w", err)
	}
	return subjects, nil
}

// ClassStudents returns students enrolled in the class for the academic year.
func (r *CatalogRepository) ClassStudents(ctx context.Context, classID, academicYear string) ([]models.ClassStudent, error) {
	const query = `SELECT e.student_id, st.full_name AS student_name
FROM enrollments e
JOIN students st ON st.id = e.student_id
WHERE e.class_id = $1 AND e.academic_year = $2 AND e.status = 'ACTIVE'
ORDER BY st.full_name ASC`
	var students []models.ClassStudent
	if err := r.db.SelectContext(ctx, &students, query, classID, academicYear); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return students, nil
}
