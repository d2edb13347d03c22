package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newCatalogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCatalogRepositoryRequiredSubjects(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"subject_id", "subject_name"}).
		AddRow("subj-eng", "English Language").
		AddRow("subj-math", "Mathematics")
	mock.ExpectQuery(regexp.QuoteMeta("JOIN subjects s ON s.id = cs.subject_id")).
		WithArgs("class-1A").
		WillReturnRows(rows)

	subjects, err := repo.RequiredSubjects(context.Background(), "class-1A")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	require.Equal(t, "English Language", subjects[0].SubjectName)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogRepositoryClassStudents(t *testing.T) {
	db, mock, cleanup := newCatalogRepoMock(t)
	defer cleanup()
	repo := NewCatalogRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "student_name"}).
		AddRow("stu1", "Abena Mensah").
		AddRow("stu2", "Kofi Owusu")
	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.class_id = $1 AND e.academic_year = $2 AND e.status = 'ACTIVE'")).
		WithArgs("class-1A", "2025-2026").
		WillReturnRows(rows)

	students, err := repo.ClassStudents(context.Background(), "class-1A", "2025-2026")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Abena Mensah", students[0].StudentName)
	require.NoError(t, mock.ExpectationsWereMet())
}
