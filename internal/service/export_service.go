package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/pkg/export"
	"github.com/mensah-dev/school-results-api/pkg/storage"
)

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	ExpiresAt    time.Time
}

// ExportService renders a published class's results to CSV and persists the
// file behind a signed download URL.
type ExportService struct {
	records gradeRecordStore
	catalog classCatalog
	storage fileStorage
	csv     csvRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(records gradeRecordStore, catalog classCatalog, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	return &ExportService{
		records: records,
		catalog: catalog,
		storage: store,
		csv:     csv,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the results dataset for the job's class scope and stores
// the rendered CSV. Only published records are exported.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, err := s.buildDataset(ctx, job.Params)
	if err != nil {
		return nil, err
	}

	payload, err := s.csv.Render(dataset)
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job.Params)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	signedURL := strings.TrimRight(s.cfg.APIPrefix, "/")
	if signedURL == "" {
		signedURL = "/api/v1"
	}
	signedURL = fmt.Sprintf("%s/results/export/%s", signedURL, token)

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          signedURL,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(params models.ExportJobParams) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	name := fmt.Sprintf("results_%s_%s_%s_%s.csv",
		sanitizeFilename(params.ClassID),
		sanitizeFilename(string(params.Term)),
		sanitizeFilename(params.AcademicYear),
		timestamp)
	return name
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, error) {
	records, err := s.records.List(ctx, models.RecordFilter{
		ClassID:      params.ClassID,
		Term:         params.Term,
		AcademicYear: params.AcademicYear,
		Status:       models.RecordStatusPublished,
	})
	if err != nil {
		return export.Dataset{}, err
	}
	if len(records) == 0 {
		return export.Dataset{}, fmt.Errorf("no published results for class %s %s %s", params.ClassID, params.Term, params.AcademicYear)
	}

	roster, err := s.catalog.ClassStudents(ctx, params.ClassID, params.AcademicYear)
	if err != nil {
		return export.Dataset{}, err
	}
	names := make(map[string]string, len(roster))
	for _, student := range roster {
		names[student.StudentID] = student.StudentName
	}

	headers := []string{"Student ID", "Student Name", "Subject", "Continuous (30)", "Exam (70)", "Final", "Grade", "Remarks"}
	rows := make([]map[string]string, 0, len(records)*len(roster))
	for _, record := range records {
		studentIDs := make([]string, 0, len(record.Grades))
		for studentID := range record.Grades {
			studentIDs = append(studentIDs, studentID)
		}
		sort.Strings(studentIDs)
		for _, studentID := range studentIDs {
			grade := record.Grades[studentID]
			rows = append(rows, map[string]string{
				"Student ID":      studentID,
				"Student Name":    names[studentID],
				"Subject":         record.Subject,
				"Continuous (30)": fmt.Sprintf("%.2f", grade.ContinuousScore),
				"Exam (70)":       fmt.Sprintf("%.2f", grade.ExamScore),
				"Final":           fmt.Sprintf("%d", grade.Score),
				"Grade":           string(grade.Grade),
				"Remarks":         grade.Remarks,
			})
		}
	}

	return export.Dataset{Headers: headers, Rows: rows}, nil
}
