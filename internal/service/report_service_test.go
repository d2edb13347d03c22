package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensah-dev/school-results-api/internal/models"
)

type mockCatalog struct {
	subjects []models.RequiredSubject
	students []models.ClassStudent
}

func (m *mockCatalog) RequiredSubjects(ctx context.Context, classID string) ([]models.RequiredSubject, error) {
	return m.subjects, nil
}

func (m *mockCatalog) ClassStudents(ctx context.Context, classID, academicYear string) ([]models.ClassStudent, error) {
	return m.students, nil
}

func threeSubjectCatalog() *mockCatalog {
	return &mockCatalog{
		subjects: []models.RequiredSubject{
			{SubjectID: "sub-math", SubjectName: "Mathematics"},
			{SubjectID: "sub-eng", SubjectName: "English"},
			{SubjectID: "sub-sci", SubjectName: "Science"},
		},
		students: []models.ClassStudent{
			{StudentID: "stu1", StudentName: "Abena Mensah"},
			{StudentID: "stu2", StudentName: "Kofi Owusu"},
		},
	}
}

func seedRecord(store *mockRecordStore, subject string, status models.RecordStatus, studentIDs ...string) *models.GradeRecord {
	grades := make(models.StudentGradeMap, len(studentIDs))
	for _, id := range studentIDs {
		grade, _ := BuildStudentGrade(id, fullScores(15, 15, 15, 15, 15, 8), 50)
		grades[id] = grade
	}
	record := &models.GradeRecord{
		ClassID:      "class-1A",
		Subject:      subject,
		Term:         models.TermFirst,
		AcademicYear: "2025-2026",
		Grades:       grades,
		Status:       status,
		SubmittedBy:  "teacher-1",
	}
	_ = store.Create(context.Background(), record)
	return record
}

func TestBuildClassReportCompleteness(t *testing.T) {
	store := newMockRecordStore()
	seedRecord(store, "Mathematics", models.RecordStatusPending, "stu1", "stu2")
	seedRecord(store, "English", models.RecordStatusPending, "stu1", "stu2")
	seedRecord(store, "Science", models.RecordStatusPending, "stu1")

	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	assert.Equal(t, 3, report.TotalSubjects)
	require.Len(t, report.Students, 2)

	byID := make(map[string]models.StudentReportRow)
	for _, row := range report.Students {
		byID[row.StudentID] = row
	}
	assert.True(t, byID["stu1"].Complete)
	assert.Equal(t, 3, byID["stu1"].SubjectsCount)
	assert.Equal(t, models.ReportStatusSubmitted, byID["stu1"].Status)
	assert.False(t, byID["stu2"].Complete)
	assert.Equal(t, 2, byID["stu2"].SubjectsCount)
	// incomplete students never progress past pending
	assert.Equal(t, models.ReportStatusPending, byID["stu2"].Status)
	assert.Equal(t, "Kofi Owusu", byID["stu2"].StudentName)
}

func TestBuildClassReportStatusPrecedence(t *testing.T) {
	store := newMockRecordStore()
	seedRecord(store, "Mathematics", models.RecordStatusPending, "stu1")
	seedRecord(store, "English", models.RecordStatusReview, "stu1")
	seedRecord(store, "Science", models.RecordStatusCompleted, "stu1")

	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	// highest progress wins for the student row
	byID := make(map[string]models.StudentReportRow)
	for _, row := range report.Students {
		byID[row.StudentID] = row
	}
	assert.Equal(t, models.ReportStatusCompleted, byID["stu1"].Status)
	// stu2 has no scores anywhere
	assert.Equal(t, models.ReportStatusPending, byID["stu2"].Status)
	assert.Equal(t, 0, byID["stu2"].SubjectsCount)
}

func TestBuildClassReportLenientClassStatus(t *testing.T) {
	store := newMockRecordStore()
	seedRecord(store, "Mathematics", models.RecordStatusCompleted, "stu1", "stu2")
	seedRecord(store, "English", models.RecordStatusPending, "stu1", "stu2")
	seedRecord(store, "Science", models.RecordStatusPending, "stu1")

	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	byID := make(map[string]models.StudentReportRow)
	for _, row := range report.Students {
		byID[row.StudentID] = row
	}
	assert.Equal(t, models.ReportStatusCompleted, byID["stu1"].Status)
	assert.True(t, byID["stu1"].CanPublish)
	assert.Equal(t, models.ReportStatusPending, byID["stu2"].Status)
	assert.False(t, byID["stu2"].CanPublish)

	// one completed student marks the whole class completed and publishable
	// even though the other student was never reviewed
	assert.Equal(t, models.ReportStatusCompleted, report.Status)
	assert.True(t, report.CanPublish)
}

func TestBuildClassReportNothingSubmitted(t *testing.T) {
	store := newMockRecordStore()
	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.False(t, report.CanPublish)
	require.Len(t, report.Students, 2)
	for _, row := range report.Students {
		assert.False(t, row.Complete)
		assert.Equal(t, models.ReportStatusPending, row.Status)
	}
}

func TestBuildClassReportReviewOnly(t *testing.T) {
	store := newMockRecordStore()
	seedRecord(store, "Mathematics", models.RecordStatusReview, "stu1", "stu2")
	seedRecord(store, "English", models.RecordStatusReview, "stu1", "stu2")
	seedRecord(store, "Science", models.RecordStatusPending, "stu1", "stu2")

	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusReview, report.Status)
	assert.False(t, report.CanPublish)
	byID := make(map[string]models.StudentReportRow)
	for _, row := range report.Students {
		byID[row.StudentID] = row
	}
	assert.Equal(t, models.ReportStatusReview, byID["stu1"].Status)
	assert.Equal(t, models.ReportStatusReview, byID["stu2"].Status)
}

func TestBuildClassReportPartialCoverageStaysPending(t *testing.T) {
	store := newMockRecordStore()
	seedRecord(store, "Mathematics", models.RecordStatusReview, "stu1", "stu2")

	svc := NewReportService(store, threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	report, err := svc.BuildClassReport(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.False(t, report.CanPublish)
	for _, row := range report.Students {
		assert.False(t, row.Complete)
		assert.Equal(t, models.ReportStatusPending, row.Status)
	}
}

func TestBuildClassReportRejectsBadTerm(t *testing.T) {
	svc := NewReportService(newMockRecordStore(), threeSubjectCatalog(), &mockCache{}, nil, ReportServiceConfig{})
	_, err := svc.BuildClassReport(context.Background(), "class-1A", "semester1", "2025-2026")
	require.Error(t, err)
}
