package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensah-dev/school-results-api/internal/models"
)

func seedRecordWithScores(store *mockRecordStore, subject string, scores map[string]int) {
	grades := make(models.StudentGradeMap, len(scores))
	for studentID, final := range scores {
		grade, remarks := Classify(final)
		grades[studentID] = models.StudentGrade{
			Score:   final,
			Grade:   grade,
			Remarks: remarks,
		}
	}
	record := &models.GradeRecord{
		ClassID:      "class-1A",
		Subject:      subject,
		Term:         models.TermFirst,
		AcademicYear: "2025-2026",
		Grades:       grades,
		Status:       models.RecordStatusPublished,
		SubmittedBy:  "teacher-1",
	}
	_ = store.Create(context.Background(), record)
}

func rankingCatalog(studentIDs ...string) *mockCatalog {
	catalog := &mockCatalog{}
	for _, id := range studentIDs {
		catalog.students = append(catalog.students, models.ClassStudent{StudentID: id, StudentName: "Student " + id})
	}
	return catalog
}

func TestRankOrdersByAverage(t *testing.T) {
	store := newMockRecordStore()
	seedRecordWithScores(store, "Mathematics", map[string]int{"stu1": 90, "stu2": 70, "stu3": 80})
	seedRecordWithScores(store, "English", map[string]int{"stu1": 80, "stu2": 60, "stu3": 90})

	svc := NewRankingService(store, rankingCatalog("stu1", "stu2", "stu3"), &mockCache{}, nil, RankingServiceConfig{})
	ranking, err := svc.Rank(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	require.Len(t, ranking.Positions, 3)
	assert.Equal(t, 3, ranking.TotalStudents)

	assert.Equal(t, "stu1", ranking.Positions[0].StudentID)
	assert.InDelta(t, 85.0, ranking.Positions[0].Average, 1e-9)
	assert.Equal(t, 1, ranking.Positions[0].Position)

	assert.Equal(t, "stu3", ranking.Positions[1].StudentID)
	assert.InDelta(t, 85.0, ranking.Positions[1].Average, 1e-9)
	assert.Equal(t, 2, ranking.Positions[1].Position)

	assert.Equal(t, "stu2", ranking.Positions[2].StudentID)
	assert.InDelta(t, 65.0, ranking.Positions[2].Average, 1e-9)
	assert.Equal(t, 3, ranking.Positions[2].Position)
}

func TestRankTiesKeepRosterOrder(t *testing.T) {
	store := newMockRecordStore()
	seedRecordWithScores(store, "Mathematics", map[string]int{"stu1": 90, "stu2": 90, "stu3": 70})

	svc := NewRankingService(store, rankingCatalog("stu1", "stu2", "stu3"), &mockCache{}, nil, RankingServiceConfig{})
	ranking, err := svc.Rank(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	// ties receive distinct sequential positions in roster order
	assert.Equal(t, "stu1", ranking.Positions[0].StudentID)
	assert.Equal(t, 1, ranking.Positions[0].Position)
	assert.Equal(t, "stu2", ranking.Positions[1].StudentID)
	assert.Equal(t, 2, ranking.Positions[1].Position)
	assert.Equal(t, "stu3", ranking.Positions[2].StudentID)
	assert.Equal(t, 3, ranking.Positions[2].Position)
}

func TestRankStudentsWithoutScoresAverageZero(t *testing.T) {
	store := newMockRecordStore()
	seedRecordWithScores(store, "Mathematics", map[string]int{"stu1": 75})

	svc := NewRankingService(store, rankingCatalog("stu1", "stu2"), &mockCache{}, nil, RankingServiceConfig{})
	ranking, err := svc.Rank(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)

	require.Len(t, ranking.Positions, 2)
	assert.Equal(t, "stu2", ranking.Positions[1].StudentID)
	assert.Equal(t, 0.0, ranking.Positions[1].Average)
	assert.Equal(t, 2, ranking.Positions[1].Position)
	assert.Equal(t, 2, ranking.Positions[1].TotalStudents)
}

func TestRankEmptyClass(t *testing.T) {
	svc := NewRankingService(newMockRecordStore(), rankingCatalog(), &mockCache{}, nil, RankingServiceConfig{})
	ranking, err := svc.Rank(context.Background(), "class-1A", models.TermFirst, "2025-2026")
	require.NoError(t, err)
	assert.Empty(t, ranking.Positions)
	assert.Equal(t, 0, ranking.TotalStudents)
}
