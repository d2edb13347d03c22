package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/repository"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

var academicYearPattern = regexp.MustCompile(`^\d{4}-\d{4}$`)

type gradeRecordStore interface {
	List(ctx context.Context, filter models.RecordFilter) ([]models.GradeRecord, error)
	GetByID(ctx context.Context, id string) (*models.GradeRecord, error)
	FindByKey(ctx context.Context, classID, subject string, term models.Term, academicYear string) (*models.GradeRecord, error)
	Create(ctx context.Context, record *models.GradeRecord) error
	Replace(ctx context.Context, record *models.GradeRecord) error
	Update(ctx context.Context, id string, params repository.UpdateRecordParams) error
	PublishScope(ctx context.Context, classID string, term models.Term, academicYear, publishedBy string, publishedAt time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type resultsCacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateClassScope(ctx context.Context, classID string, term models.Term, academicYear string)
}

type engineMetrics interface {
	RecordSubmitted()
	ClassPublished(recordCount int)
	RecordCacheOperation(hit bool)
	ObserveDBQuery(label string, duration time.Duration)
}

// StudentScoresInput carries one student's raw scores within a submission.
type StudentScoresInput struct {
	ContinuousAssessment map[models.ComponentID]float64 `json:"continuousAssessment" validate:"required"`
	ExamScore            float64                        `json:"examScore"`
}

// SubmitScoresRequest creates or overwrites a subject's score sheet.
type SubmitScoresRequest struct {
	ClassID      string                        `json:"class_id" validate:"required"`
	Subject      string                        `json:"subject" validate:"required"`
	Term         models.Term                   `json:"term" validate:"required,oneof=term1 term2 term3"`
	AcademicYear string                        `json:"academic_year" validate:"required"`
	Grades       map[string]StudentScoresInput `json:"grades" validate:"required,min=1"`
}

// StudentSubjectResult is one published subject result in a student read.
type StudentSubjectResult struct {
	Subject string              `json:"subject"`
	Grade   models.StudentGrade `json:"grade"`
}

// ResultsService drives a grade record through entry, review and publication.
type ResultsService struct {
	records      gradeRecordStore
	cache        resultsCacheStore
	metrics      engineMetrics
	validator    *validator.Validate
	logger       *zap.Logger
	studentTTL   time.Duration
	cacheEnabled bool
}

// ResultsServiceConfig tunes read-side caching.
type ResultsServiceConfig struct {
	CacheEnabled    bool
	StudentCacheTTL time.Duration
}

// NewResultsService constructs ResultsService.
func NewResultsService(records gradeRecordStore, cache resultsCacheStore, metrics engineMetrics, validate *validator.Validate, logger *zap.Logger, cfg ResultsServiceConfig) *ResultsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StudentCacheTTL <= 0 {
		cfg.StudentCacheTTL = 10 * time.Minute
	}
	return &ResultsService{
		records:      records,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		studentTTL:   cfg.StudentCacheTTL,
		cacheEnabled: cfg.CacheEnabled,
	}
}

// Submit creates or overwrites the grade record for the request's identity
// key, recomputing every derived score. The record lands in PENDING. Scores
// are validated in full before any write; overwrite is only allowed while the
// record is still editable (PENDING, REVIEW or DECLINED).
func (s *ResultsService) Submit(ctx context.Context, req SubmitScoresRequest, actor models.Actor) (*models.GradeRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}
	if !academicYearPattern.MatchString(req.AcademicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "academic year must be formatted YYYY-YYYY")
	}
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot submit scores")
	}

	grades := make(models.StudentGradeMap, len(req.Grades))
	var violations []models.ScoreViolation
	for studentID, input := range req.Grades {
		if vs := ValidateStudentScores(studentID, input.ContinuousAssessment, input.ExamScore); len(vs) > 0 {
			violations = append(violations, vs...)
			continue
		}
		grade, err := BuildStudentGrade(studentID, input.ContinuousAssessment, input.ExamScore)
		if err != nil {
			return nil, err
		}
		grades[studentID] = grade
	}
	if len(violations) > 0 {
		sort.Slice(violations, func(i, j int) bool {
			if violations[i].StudentID != violations[j].StudentID {
				return violations[i].StudentID < violations[j].StudentID
			}
			return violations[i].Component < violations[j].Component
		})
		return nil, appErrors.Clone(appErrors.ErrValidation, "one or more scores are out of range").WithDetails(violations)
	}

	now := time.Now().UTC()
	existing, err := s.records.FindByKey(ctx, req.ClassID, req.Subject, req.Term, req.AcademicYear)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up grade record")
	}

	if existing != nil {
		switch existing.Status {
		case models.RecordStatusPending, models.RecordStatusReview, models.RecordStatusDeclined:
			// editable; fall through to overwrite
		default:
			return nil, appErrors.Clone(appErrors.ErrStateTransition,
				fmt.Sprintf("record is %s and can no longer be overwritten", existing.Status))
		}
		existing.Grades = grades
		existing.Status = models.RecordStatusPending
		existing.SubmittedBy = actor.ID
		existing.SubmittedAt = now
		if err := s.records.Replace(ctx, existing); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to overwrite grade record")
		}
		s.invalidate(ctx, existing.ClassID, existing.Term, existing.AcademicYear)
		if s.metrics != nil {
			s.metrics.RecordSubmitted()
		}
		return existing, nil
	}

	record := &models.GradeRecord{
		ClassID:      req.ClassID,
		Subject:      req.Subject,
		Term:         req.Term,
		AcademicYear: req.AcademicYear,
		Grades:       grades,
		Status:       models.RecordStatusPending,
		SubmittedBy:  actor.ID,
		SubmittedAt:  now,
	}
	if err := s.records.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create grade record")
	}
	s.invalidate(ctx, record.ClassID, record.Term, record.AcademicYear)
	if s.metrics != nil {
		s.metrics.RecordSubmitted()
	}
	return record, nil
}

// MarkReview moves a PENDING record into REVIEW. Calling it on a record
// already in REVIEW is a no-op success.
func (s *ResultsService) MarkReview(ctx context.Context, recordID string, actor models.Actor) (*models.GradeRecord, error) {
	if actor.Role == models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students cannot review results")
	}
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case models.RecordStatusReview:
		return record, nil
	case models.RecordStatusPending:
		// allowed
	default:
		return nil, appErrors.Clone(appErrors.ErrStateTransition,
			fmt.Sprintf("cannot mark %s record for review", record.Status))
	}

	now := time.Now().UTC()
	status := models.RecordStatusReview
	if err := s.applyUpdate(ctx, record.ID, repository.UpdateRecordParams{
		Status:     &status,
		ReviewedBy: &actor.ID,
		ReviewedAt: &now,
	}); err != nil {
		return nil, err
	}
	record.Status = status
	record.ReviewedBy = &actor.ID
	record.ReviewedAt = &now
	s.invalidate(ctx, record.ClassID, record.Term, record.AcademicYear)
	return record, nil
}

// Approve transitions a PENDING or REVIEW record to COMPLETED. Approving an
// already COMPLETED record is a no-op success; a PUBLISHED record is immutable.
func (s *ResultsService) Approve(ctx context.Context, recordID string, actor models.Actor) (*models.GradeRecord, error) {
	if !actor.CanReview() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "approval requires review rights")
	}
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case models.RecordStatusCompleted:
		return record, nil
	case models.RecordStatusPending, models.RecordStatusReview:
		// allowed
	default:
		return nil, appErrors.Clone(appErrors.ErrStateTransition,
			fmt.Sprintf("cannot approve %s record", record.Status))
	}

	now := time.Now().UTC()
	status := models.RecordStatusCompleted
	if err := s.applyUpdate(ctx, record.ID, repository.UpdateRecordParams{
		Status:     &status,
		ReviewedBy: &actor.ID,
		ReviewedAt: &now,
	}); err != nil {
		return nil, err
	}
	record.Status = status
	record.ReviewedBy = &actor.ID
	record.ReviewedAt = &now
	s.invalidate(ctx, record.ClassID, record.Term, record.AcademicYear)
	return record, nil
}

// Decline rejects a record from any status.
func (s *ResultsService) Decline(ctx context.Context, recordID string, actor models.Actor) (*models.GradeRecord, error) {
	if !actor.CanReview() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "declining requires review rights")
	}
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.RecordStatusDeclined {
		return record, nil
	}

	now := time.Now().UTC()
	status := models.RecordStatusDeclined
	if err := s.applyUpdate(ctx, record.ID, repository.UpdateRecordParams{
		Status:     &status,
		ReviewedBy: &actor.ID,
		ReviewedAt: &now,
	}); err != nil {
		return nil, err
	}
	record.Status = status
	record.ReviewedBy = &actor.ID
	record.ReviewedAt = &now
	s.invalidate(ctx, record.ClassID, record.Term, record.AcademicYear)
	return record, nil
}

// Publish transitions every grade record of the class/term/year scope to
// PUBLISHED as one batched update. At least one record must be COMPLETED.
// Republishing a fully published class is a no-op success.
func (s *ResultsService) Publish(ctx context.Context, classID string, term models.Term, academicYear string, actor models.Actor) (*models.PublishResult, error) {
	if !actor.CanReview() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "publishing requires review rights")
	}
	records, err := s.records.List(ctx, models.RecordFilter{ClassID: classID, Term: term, AcademicYear: academicYear})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}
	if len(records) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no grade records for class/term/year")
	}

	pending := make([]string, 0, len(records))
	hasCompleted := false
	for _, record := range records {
		if record.Status == models.RecordStatusCompleted {
			hasCompleted = true
		}
		if record.Status != models.RecordStatusPublished {
			pending = append(pending, record.ID)
		}
	}
	if len(pending) == 0 {
		return &models.PublishResult{AlreadyDone: true}, nil
	}
	if !hasCompleted {
		return nil, appErrors.Clone(appErrors.ErrStateTransition, "publish requires at least one completed record")
	}

	now := time.Now().UTC()
	publishedIDs, err := s.records.PublishScope(ctx, classID, term, academicYear, actor.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish grade records")
	}

	result := &models.PublishResult{PublishedIDs: publishedIDs}
	published := make(map[string]bool, len(publishedIDs))
	for _, id := range publishedIDs {
		published[id] = true
	}
	for _, id := range pending {
		if !published[id] {
			result.Failures = append(result.Failures, models.PublishFailure{RecordID: id, Reason: "record was not updated"})
		}
	}

	s.invalidate(ctx, classID, term, academicYear)
	if s.metrics != nil {
		s.metrics.ClassPublished(len(publishedIDs))
	}
	s.logger.Sugar().Infow("class results published",
		"class_id", classID, "term", term, "academic_year", academicYear,
		"records", len(publishedIDs), "published_by", actor.ID)
	return result, nil
}

// GetRecord returns a single grade record.
func (s *ResultsService) GetRecord(ctx context.Context, recordID string) (*models.GradeRecord, error) {
	return s.loadRecord(ctx, recordID)
}

// ListRecords returns grade records matching the filter.
func (s *ResultsService) ListRecords(ctx context.Context, filter models.RecordFilter) ([]models.GradeRecord, error) {
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}
	return records, nil
}

// DeleteRecord removes a single record. Administrative use only.
func (s *ResultsService) DeleteRecord(ctx context.Context, recordID string, actor models.Actor) error {
	if actor.Role != models.RoleAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only administrators may delete records")
	}
	record, err := s.loadRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, recordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete grade record")
	}
	s.invalidate(ctx, record.ClassID, record.Term, record.AcademicYear)
	return nil
}

// StudentResults returns the student's published subject results for a
// term/year. Unpublished records are never visible here.
func (s *ResultsService) StudentResults(ctx context.Context, studentID string, term models.Term, academicYear string) ([]StudentSubjectResult, error) {
	key := repository.StudentResultsKey(studentID, term, academicYear)
	if s.cacheEnabled && s.cache != nil {
		var cached []StudentSubjectResult
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			if s.metrics != nil {
				s.metrics.RecordCacheOperation(true)
			}
			return cached, nil
		}
		if s.metrics != nil {
			s.metrics.RecordCacheOperation(false)
		}
	}

	start := time.Now()
	records, err := s.records.List(ctx, models.RecordFilter{
		Term:         term,
		AcademicYear: academicYear,
		Status:       models.RecordStatusPublished,
	})
	if s.metrics != nil {
		s.metrics.ObserveDBQuery("student_results", time.Since(start))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list published records")
	}

	results := make([]StudentSubjectResult, 0)
	for _, record := range records {
		if grade, ok := record.Grades[studentID]; ok {
			results = append(results, StudentSubjectResult{Subject: record.Subject, Grade: grade})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Subject < results[j].Subject })

	if s.cacheEnabled && s.cache != nil {
		if err := s.cache.Set(ctx, key, results, s.studentTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache student results", "key", key, "error", err)
		}
	}
	return results, nil
}

func (s *ResultsService) loadRecord(ctx context.Context, recordID string) (*models.GradeRecord, error) {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade record")
	}
	return record, nil
}

func (s *ResultsService) applyUpdate(ctx context.Context, recordID string, params repository.UpdateRecordParams) error {
	if err := s.records.Update(ctx, recordID, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "grade record not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade record")
	}
	return nil
}

func (s *ResultsService) invalidate(ctx context.Context, classID string, term models.Term, academicYear string) {
	if s.cache != nil {
		s.cache.InvalidateClassScope(ctx, classID, term, academicYear)
	}
}
