package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mensah-dev/school-results-api/internal/dto"
	"github.com/mensah-dev/school-results-api/internal/models"
	"github.com/mensah-dev/school-results-api/internal/repository"
	"github.com/mensah-dev/school-results-api/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	r.jobs[job.ID] = job
	return nil
}

func (r *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return job, nil
}

func (r *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := r.jobs[id]
	if !ok {
		return errors.New("not found")
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (r *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func newExportJobServiceForTest(t *testing.T, records *mockRecordStore) (*ExportJobService, *exportJobRepoStub, *queueStub, *ExportService) {
	t.Helper()
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exporter, _ := newExportServiceForTest(t, records)
	svc := NewExportJobService(repo, queue, exporter, zap.NewNop(), ExportJobServiceConfig{
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
		MaxRetries:      3,
	})
	return svc, repo, queue, exporter
}

func validExportRequest() dto.ExportRequest {
	return dto.ExportRequest{ClassID: "class-1A", Term: models.TermFirst, AcademicYear: "2025-2026"}
}

func TestExportJobServiceCreateJob(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t, newMockRecordStore())
	resp, err := svc.CreateJob(context.Background(), validExportRequest(), admin)
	require.NoError(t, err)
	require.NotEmpty(t, resp.ID)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	assert.Contains(t, repo.jobs, resp.ID)
}

func TestExportJobServiceCreateJobValidation(t *testing.T) {
	svc, _, _, _ := newExportJobServiceForTest(t, newMockRecordStore())

	req := validExportRequest()
	req.ClassID = ""
	_, err := svc.CreateJob(context.Background(), req, admin)
	require.Error(t, err)

	req = validExportRequest()
	req.Term = "semester1"
	_, err = svc.CreateJob(context.Background(), req, admin)
	require.Error(t, err)

	req = validExportRequest()
	req.AcademicYear = "25-26"
	_, err = svc.CreateJob(context.Background(), req, admin)
	require.Error(t, err)

	_, err = svc.CreateJob(context.Background(), validExportRequest(), student)
	require.Error(t, err)
}

func TestExportJobServiceCreateJobEnqueueFailure(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t, newMockRecordStore())
	queue.err = errors.New("queue full")

	_, err := svc.CreateJob(context.Background(), validExportRequest(), admin)
	require.Error(t, err)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceGetStatusOwnership(t *testing.T) {
	svc, repo, _, _ := newExportJobServiceForTest(t, newMockRecordStore())
	job := &models.ExportJob{
		ID:        "job-1",
		Params:    models.ExportJobParams{ClassID: "class-1A", Term: models.TermFirst, AcademicYear: "2025-2026"},
		Status:    models.ExportStatusFinished,
		Progress:  100,
		CreatedBy: "teacher-1",
	}
	repo.jobs[job.ID] = job

	resp, err := svc.GetStatus(context.Background(), job.ID, teacher)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, resp.Status)

	other := models.Actor{ID: "teacher-2", Role: models.RoleTeacher}
	_, err = svc.GetStatus(context.Background(), job.ID, other)
	require.Error(t, err)

	// admins can always read
	_, err = svc.GetStatus(context.Background(), job.ID, admin)
	require.NoError(t, err)
}

func TestExportJobServiceResolveDownload(t *testing.T) {
	records := newMockRecordStore()
	seedRecordWithScores(records, "Mathematics", map[string]int{"stu1": 88})
	svc, repo, _, exporter := newExportJobServiceForTest(t, records)

	job := &models.ExportJob{
		ID:        "job-download",
		Params:    models.ExportJobParams{ClassID: "class-1A", Term: models.TermFirst, AcademicYear: "2025-2026"},
		Status:    models.ExportStatusFinished,
		Progress:  100,
		CreatedBy: "admin-1",
	}
	repo.jobs[job.ID] = job
	result, err := exporter.Generate(context.Background(), job)
	require.NoError(t, err)
	job.ResultURL = &result.URL
	now := time.Now()
	job.FinishedAt = &now

	download, err := svc.ResolveDownload(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(result.RelativePath), download.Filename)
	download.File.Close()
}

func TestExportJobServiceRecoverPendingJobs(t *testing.T) {
	svc, repo, queue, _ := newExportJobServiceForTest(t, newMockRecordStore())
	repo.jobs["q1"] = &models.ExportJob{ID: "q1", Status: models.ExportStatusQueued}
	repo.jobs["f1"] = &models.ExportJob{ID: "f1", Status: models.ExportStatusFinished}

	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "q1", queue.jobs[0].ID)
}

type exportStub struct {
	result *ExportResult
	err    error
}

func (e exportStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	repo := &exportJobRepoStub{
		jobs: map[string]*models.ExportJob{
			"job-1": {
				ID:        "job-1",
				Params:    models.ExportJobParams{ClassID: "class-1A", Term: models.TermFirst, AcademicYear: "2025-2026"},
				Status:    models.ExportStatusQueued,
				CreatedBy: "admin-1",
			},
		},
	}
	exporter := exportStub{result: &ExportResult{URL: "/api/v1/results/export/token"}}
	worker := NewExportWorker(repo, exporter, 3, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusFinished, repo.jobs["job-1"].Status)
	require.Equal(t, 100, repo.jobs["job-1"].Progress)
	require.NotNil(t, repo.jobs["job-1"].ResultURL)
}

func TestExportWorkerHandleFailureRetries(t *testing.T) {
	repo := &exportJobRepoStub{
		jobs: map[string]*models.ExportJob{
			"job-1": {
				ID:     "job-1",
				Status: models.ExportStatusQueued,
			},
		},
	}
	exporter := exportStub{err: errors.New("boom")}
	worker := NewExportWorker(repo, exporter, 2, zap.NewNop())

	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 1})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusQueued, repo.jobs["job-1"].Status)

	err = worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2})
	require.Error(t, err)
	require.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}
