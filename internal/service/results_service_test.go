package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/repository"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

type mockRecordStore struct {
	records map[string]*models.GradeRecord
}

func newMockRecordStore() *mockRecordStore {
	return &mockRecordStore{records: make(map[string]*models.GradeRecord)}
}

func (m *mockRecordStore) List(ctx context.Context, filter models.RecordFilter) ([]models.GradeRecord, error) {
	var result []models.GradeRecord
	for _, r := range m.records {
		if filter.ClassID != "" && filter.ClassID != r.ClassID {
			continue
		}
		if filter.Subject != "" && filter.Subject != r.Subject {
			continue
		}
		if filter.Term != "" && filter.Term != r.Term {
			continue
		}
		if filter.AcademicYear != "" && filter.AcademicYear != r.AcademicYear {
			continue
		}
		if filter.Status != "" && filter.Status != r.Status {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockRecordStore) GetByID(ctx context.Context, id string) (*models.GradeRecord, error) {
	if r, ok := m.records[id]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecordStore) FindByKey(ctx context.Context, classID, subject string, term models.Term, academicYear string) (*models.GradeRecord, error) {
	for _, r := range m.records {
		if r.ClassID == classID && r.Subject == subject && r.Term == term && r.AcademicYear == academicYear {
			copied := *r
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockRecordStore) Create(ctx context.Context, record *models.GradeRecord) error {
	record.ID = uuid.NewString()
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *mockRecordStore) Replace(ctx context.Context, record *models.GradeRecord) error {
	if _, ok := m.records[record.ID]; !ok {
		return sql.ErrNoRows
	}
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

func (m *mockRecordStore) Update(ctx context.Context, id string, params repository.UpdateRecordParams) error {
	r, ok := m.records[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		r.Status = *params.Status
	}
	if params.ReviewedBy != nil {
		r.ReviewedBy = params.ReviewedBy
	}
	if params.ReviewedAt != nil {
		r.ReviewedAt = params.ReviewedAt
	}
	if params.PublishedBy != nil {
		r.PublishedBy = params.PublishedBy
	}
	if params.PublishedAt != nil {
		r.PublishedAt = params.PublishedAt
	}
	return nil
}

func (m *mockRecordStore) PublishScope(ctx context.Context, classID string, term models.Term, academicYear, publishedBy string, publishedAt time.Time) ([]string, error) {
	var ids []string
	for _, r := range m.records {
		if r.ClassID == classID && r.Term == term && r.AcademicYear == academicYear && r.Status != models.RecordStatusPublished {
			r.Status = models.RecordStatusPublished
			r.PublishedBy = &publishedBy
			at := publishedAt
			r.PublishedAt = &at
			ids = append(ids, r.ID)
		}
	}
	return ids, nil
}

func (m *mockRecordStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.records, id)
	return nil
}

type mockCache struct {
	invalidated int
	data        map[string]interface{}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	return appErrors.ErrCacheMiss
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.data == nil {
		m.data = make(map[string]interface{})
	}
	m.data[key] = value
	return nil
}

func (m *mockCache) InvalidateClassScope(ctx context.Context, classID string, term models.Term, academicYear string) {
	m.invalidated++
}

type mockMetrics struct {
	submitted   int
	published   int
	cacheHits   int
	cacheMisses int
	dbQueries   int
}

func (m *mockMetrics) RecordSubmitted()           { m.submitted++ }
func (m *mockMetrics) ClassPublished(records int) { m.published += records }

func (m *mockMetrics) RecordCacheOperation(hit bool) {
	if hit {
		m.cacheHits++
	} else {
		m.cacheMisses++
	}
}

func (m *mockMetrics) ObserveDBQuery(label string, duration time.Duration) { m.dbQueries++ }

var (
	teacher  = models.Actor{ID: "teacher-1", Role: models.RoleTeacher}
	reviewer = models.Actor{ID: "reviewer-1", Role: models.RoleTeacher, Reviewer: true}
	admin    = models.Actor{ID: "admin-1", Role: models.RoleAdmin}
	student  = models.Actor{ID: "stu1", Role: models.RoleStudent}
)

func newResultsService(store *mockRecordStore) (*ResultsService, *mockCache, *mockMetrics) {
	cache := &mockCache{}
	metrics := &mockMetrics{}
	svc := NewResultsService(store, cache, metrics, validator.New(), zap.NewNop(), ResultsServiceConfig{CacheEnabled: true})
	return svc, cache, metrics
}

func validSubmission() SubmitScoresRequest {
	return SubmitScoresRequest{
		ClassID:      "class-1A",
		Subject:      "Mathematics",
		Term:         models.TermFirst,
		AcademicYear: "2025-2026",
		Grades: map[string]StudentScoresInput{
			"stu1": {ContinuousAssessment: fullScores(18, 16, 20, 20, 18, 10), ExamScore: 65},
			"stu2": {ContinuousAssessment: fullScores(10, 12, 14, 15, 13, 8), ExamScore: 40},
		},
	}
}

func TestSubmitCreatesPendingRecord(t *testing.T) {
	store := newMockRecordStore()
	svc, cache, metrics := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, record.Status)
	assert.Equal(t, "teacher-1", record.SubmittedBy)
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, 93, record.Grades["stu1"].Score)
	assert.Equal(t, models.GradeA, record.Grades["stu1"].Grade)
	assert.Equal(t, 1, cache.invalidated)
	assert.Equal(t, 1, metrics.submitted)
}

func TestSubmitRejectsOutOfRangeBeforeWriting(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	req := validSubmission()
	grades := req.Grades["stu2"]
	grades.ExamScore = 75
	req.Grades["stu2"] = grades

	_, err := svc.Submit(context.Background(), req, teacher)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	violations, ok := appErr.Details.([]models.ScoreViolation)
	require.True(t, ok)
	require.Len(t, violations, 1)
	assert.Equal(t, "stu2", violations[0].StudentID)
	assert.Empty(t, store.records)
}

func TestSubmitRejectsStudents(t *testing.T) {
	svc, _, _ := newResultsService(newMockRecordStore())
	_, err := svc.Submit(context.Background(), validSubmission(), student)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestSubmitRejectsBadAcademicYear(t *testing.T) {
	svc, _, _ := newResultsService(newMockRecordStore())
	req := validSubmission()
	req.AcademicYear = "2025/26"
	_, err := svc.Submit(context.Background(), req, teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubmitOverwritesWhilePending(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	first, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	req := validSubmission()
	grades := req.Grades["stu1"]
	grades.ExamScore = 50
	req.Grades["stu1"] = grades

	second, err := svc.Submit(context.Background(), req, teacher)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.RecordStatusPending, second.Status)
	assert.Equal(t, 78, second.Grades["stu1"].Score)
	assert.Len(t, store.records, 1)
}

func TestSubmitRefusesOverwriteAfterApproval(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), validSubmission(), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestWorkflowPendingReviewCompleted(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	reviewed, err := svc.MarkReview(context.Background(), record.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusReview, reviewed.Status)
	require.NotNil(t, reviewed.ReviewedBy)
	assert.Equal(t, "teacher-1", *reviewed.ReviewedBy)

	// repeat call is a no-op success
	again, err := svc.MarkReview(context.Background(), record.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusReview, again.Status)

	completed, err := svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusCompleted, completed.Status)
}

func TestApproveRequiresReviewRights(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), record.ID, teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Approve(context.Background(), record.ID, admin)
	require.NoError(t, err)
}

func TestDeclineFromAnyStatus(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)

	declined, err := svc.Decline(context.Background(), record.ID, reviewer)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusDeclined, declined.Status)

	// declined sheet can be corrected and re-submitted
	resubmitted, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	assert.Equal(t, models.RecordStatusPending, resubmitted.Status)
}

func TestPublishClassScope(t *testing.T) {
	store := newMockRecordStore()
	svc, cache, metrics := newResultsService(store)

	math, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	english := validSubmission()
	english.Subject = "English"
	englishRecord, err := svc.Submit(context.Background(), english, teacher)
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), math.ID, reviewer)
	require.NoError(t, err)

	cache.invalidated = 0
	result, err := svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.NoError(t, err)
	assert.False(t, result.AlreadyDone)
	assert.ElementsMatch(t, []string{math.ID, englishRecord.ID}, result.PublishedIDs)
	assert.Empty(t, result.Failures)
	assert.Equal(t, 1, cache.invalidated)
	assert.Equal(t, 2, metrics.published)

	for _, r := range store.records {
		assert.Equal(t, models.RecordStatusPublished, r.Status)
		require.NotNil(t, r.PublishedBy)
		assert.Equal(t, "reviewer-1", *r.PublishedBy)
	}
}

func TestPublishRequiresCompletedRecord(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	_, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	_, err = svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestPublishIdempotent(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.NoError(t, err)

	again, err := svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.NoError(t, err)
	assert.True(t, again.AlreadyDone)
	assert.Empty(t, again.PublishedIDs)
}

func TestPublishUnknownScope(t *testing.T) {
	svc, _, _ := newResultsService(newMockRecordStore())
	_, err := svc.Publish(context.Background(), "missing", models.TermFirst, "2025-2026", reviewer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestPublishedRecordIsImmutable(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.NoError(t, err)

	_, err = svc.MarkReview(context.Background(), record.ID, teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)

	_, err = svc.Submit(context.Background(), validSubmission(), teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrStateTransition.Code, appErrors.FromError(err).Code)
}

func TestStudentResultsPublishedOnly(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	results, err := svc.StudentResults(context.Background(), "stu1", models.TermFirst, "2025-2026")
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = svc.Approve(context.Background(), record.ID, reviewer)
	require.NoError(t, err)
	_, err = svc.Publish(context.Background(), "class-1A", models.TermFirst, "2025-2026", reviewer)
	require.NoError(t, err)

	results, err = svc.StudentResults(context.Background(), "stu1", models.TermFirst, "2025-2026")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Mathematics", results[0].Subject)
	assert.Equal(t, 93, results[0].Grade.Score)
}

func TestDeleteRecordAdminOnly(t *testing.T) {
	store := newMockRecordStore()
	svc, _, _ := newResultsService(store)

	record, err := svc.Submit(context.Background(), validSubmission(), teacher)
	require.NoError(t, err)

	err = svc.DeleteRecord(context.Background(), record.ID, teacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.DeleteRecord(context.Background(), record.ID, admin))
	assert.Empty(t, store.records)
}
