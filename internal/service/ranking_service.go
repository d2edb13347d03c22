package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/repository"
	appErrors "github.com/mensah-dev/school-results-api/pkg/errors"
)

// RankingService orders a class by average final score.
type RankingService struct {
	records    gradeRecordStore
	catalog    classCatalog
	cache      resultsCacheStore
	logger     *zap.Logger
	rankingTTL time.Duration
	useCache   bool
}

// RankingServiceConfig tunes ranking caching.
type RankingServiceConfig struct {
	CacheEnabled    bool
	RankingCacheTTL time.Duration
}

// NewRankingService constructs RankingService.
func NewRankingService(records gradeRecordStore, catalog classCatalog, cache resultsCacheStore, logger *zap.Logger, cfg RankingServiceConfig) *RankingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RankingCacheTTL <= 0 {
		cfg.RankingCacheTTL = 5 * time.Minute
	}
	return &RankingService{
		records:    records,
		catalog:    catalog,
		cache:      cache,
		logger:     logger,
		rankingTTL: cfg.RankingCacheTTL,
		useCache:   cfg.CacheEnabled,
	}
}

// Rank averages each enrolled student's final scores across the class's
// grade records for the term and assigns sequential positions, highest
// average first. Students with no scores average to zero and sort last.
// Positions are strictly sequential even on ties, with roster order
// breaking them.
func (s *RankingService) Rank(ctx context.Context, classID string, term models.Term, academicYear string) (*models.ClassRanking, error) {
	if !term.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown term")
	}

	key := repository.RankingKey(classID, term, academicYear)
	if s.useCache && s.cache != nil {
		var cached models.ClassRanking
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	students, err := s.catalog.ClassStudents(ctx, classID, academicYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class roster")
	}
	records, err := s.records.List(ctx, models.RecordFilter{ClassID: classID, Term: term, AcademicYear: academicYear})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grade records")
	}

	positions := make([]models.StudentPosition, 0, len(students))
	for _, student := range students {
		var total, count float64
		for _, record := range records {
			if grade, ok := record.Grades[student.StudentID]; ok {
				total += float64(grade.Score)
				count++
			}
		}
		avg := 0.0
		if count > 0 {
			avg = total / count
		}
		positions = append(positions, models.StudentPosition{
			StudentID: student.StudentID,
			Average:   avg,
		})
	}

	sort.SliceStable(positions, func(i, j int) bool { return positions[i].Average > positions[j].Average })
	for i := range positions {
		positions[i].Position = i + 1
		positions[i].TotalStudents = len(positions)
	}

	ranking := &models.ClassRanking{
		ClassID:       classID,
		Term:          term,
		AcademicYear:  academicYear,
		TotalStudents: len(positions),
		Positions:     positions,
	}

	if s.useCache && s.cache != nil {
		if err := s.cache.Set(ctx, key, ranking, s.rankingTTL); err != nil {
			s.logger.Warn("ranking cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return ranking, nil
}
