package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/repository"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

type classCatalog interface {
	RequiredSubjects(ctx context.Context, classID string) ([]models.RequiredSubject, error)
	ClassStudents(ctx context.Context, classID, academicYear string) ([]models.ClassStudent, error)
}

// ReportService assembles per-class completeness reports across the class's
// required subjects.
type ReportService struct {
	records   gradeRecordStore
	catalog   classCatalog
	cache     resultsCacheStore
	logger    *zap.Logger
	reportTTL time.Duration
	useCache  bool
}

// ReportServiceConfig tunes report caching.
type ReportServiceConfig struct {
	CacheEnabled   bool
	ReportCacheTTL time.Duration
}

// NewReportService constructs ReportService.
func NewReportService(records gradeRecordStore, catalog classCatalog, cache resultsCacheStore, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 5 * time.Minute
	}
	return &ReportService{
		records:   records,
		catalog:   catalog,
		cache:     cache,
		logger:    logger,
		reportTTL: cfg.ReportCacheTTL,
		useCache:  cfg.CacheEnabled,
	}
}

// BuildClassReport aggregates the class's grade records into one row per
// enrolled student. A student is complete when every required subject carries
// a score for them. The class-level status is lenient: one student reaching
// COMPLETED marks the class COMPLETED even while others lag, and publishing
// becomes available at that point.
func (s *ReportService) BuildClassReport(ctx context.Context, classID string, term models.Term, academicYear string) (*models.ClassReport, error) {
	if !term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown term")
	}

	key := repository.ClassReportKey(classID, term, academicYear)
	if s.useCache && s.cache != nil {
		var cached models.ClassReport
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	subjects, err := s.catalog.RequiredSubjects(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load required subjects")
	}
	students, err := s.catalog.ClassStudents(ctx, classID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	records, err := s.records.List(ctx, models.RecordFilter{ClassID: classID, Term: term, AcademicYear: academicYear})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}

	totalSubjects := len(subjects)
	report := &models.ClassReport{
		ClassID:       classID,
		Term:          term,
		AcademicYear:  academicYear,
		TotalSubjects: totalSubjects,
		Status:        models.ReportStatusPending,
		Students:      make([]models.StudentReportRow, 0, len(students)),
	}

	for _, student := range students {
		row := models.StudentReportRow{
			StudentID:     student.StudentID,
			StudentName:   student.StudentName,
			TotalSubjects: totalSubjects,
			Status:        models.ReportStatusPending,
		}
		var anyCompleted, anyReview, anyPending bool
		for _, record := range records {
			if _, scored := record.Grades[student.StudentID]; !scored {
				continue
			}
			row.SubjectsCount++
			switch record.Status {
			case models.RecordStatusCompleted, models.RecordStatusPublished:
				anyCompleted = true
			case models.RecordStatusReview:
				anyReview = true
			case models.RecordStatusPending:
				anyPending = true
			}
		}
		row.Complete = totalSubjects > 0 && row.SubjectsCount >= totalSubjects
		// workflow status is derived only once the student covers every
		// required subject; incomplete students stay pending
		if row.Complete {
			switch {
			case anyCompleted:
				row.Status = models.ReportStatusCompleted
				row.CanPublish = true
			case anyReview:
				row.Status = models.ReportStatusReview
			case anyPending:
				row.Status = models.ReportStatusSubmitted
			}
		}
		report.Students = append(report.Students, row)
	}

	// same precedence across rows: one completed student marks the class
	// completed even while others lag
	for _, row := range report.Students {
		switch row.Status {
		case models.ReportStatusCompleted:
			report.Status = models.ReportStatusCompleted
			report.CanPublish = true
		case models.ReportStatusReview:
			if report.Status != models.ReportStatusCompleted {
				report.Status = models.ReportStatusReview
			}
		case models.ReportStatusSubmitted:
			if report.Status == models.ReportStatusPending {
				report.Status = models.ReportStatusSubmitted
			}
		}
	}

	if s.useCache && s.cache != nil {
		if err := s.cache.Set(ctx, key, report, s.reportTTL); err != nil {
			s.logger.Warn("class report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return report, nil
}
