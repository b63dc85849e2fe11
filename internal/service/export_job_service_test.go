package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/repository"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/jobs"
)

type exportJobRepoStub struct {
	jobs map[string]*models.ExportJob
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: make(map[string]*models.ExportJob)}
}

func (m *exportJobRepoStub) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *exportJobRepoStub) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := m.jobs[id]; ok {
		copy := *job
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *exportJobRepoStub) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	job, ok := m.jobs[id]
	if !ok {
		return sql.ErrNoRows
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

func (m *exportJobRepoStub) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range m.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (m *exportJobRepoStub) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type dispatcherStub struct {
	enqueued []jobs.Job
	fail     bool
}

func (m *dispatcherStub) Enqueue(job jobs.Job) error {
	if m.fail {
		return errors.New("queue full")
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

type generatorStub struct {
	result *ExportResult
	err    error
}

func (m *generatorStub) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return m.result, m.err
}

func TestExportJobCreateEnqueues(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	svc := NewExportJobService(repo, queue, nil, nil, ExportJobServiceConfig{})
	schoolID := uuid.NewString()

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:     models.ExportTypePayments,
		SchoolID: schoolID,
		Format:   models.ExportFormatCSV,
	}, platformAdmin())
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	require.Equal(t, resp.ID, queue.enqueued[0].ID)
	require.Equal(t, schoolID, repo.jobs[resp.ID].Params.SchoolID)
}

func TestExportJobCreatePinsSchoolAdmin(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	svc := NewExportJobService(repo, queue, nil, nil, ExportJobServiceConfig{})
	schoolID := uuid.NewString()

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:     models.ExportTypeStudents,
		SchoolID: uuid.NewString(),
		Format:   models.ExportFormatXLSX,
	}, schoolAdmin(schoolID))
	require.NoError(t, err)
	require.Equal(t, schoolID, repo.jobs[resp.ID].Params.SchoolID)
}

func TestExportJobCreateValidation(t *testing.T) {
	svc := NewExportJobService(newExportJobRepoStub(), &dispatcherStub{}, nil, nil, ExportJobServiceConfig{})

	cases := []dto.ExportRequest{
		{Type: "grades", SchoolID: uuid.NewString(), Format: models.ExportFormatCSV},
		{Type: models.ExportTypePayments, SchoolID: uuid.NewString(), Format: "docx"},
		{Type: models.ExportTypePayments, Format: models.ExportFormatCSV},
	}
	for _, req := range cases {
		_, err := svc.CreateJob(context.Background(), req, platformAdmin())
		require.Error(t, err)
		appErr, ok := err.(*appErrors.Error)
		require.True(t, ok)
		require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	}
}

func TestExportJobCreateMarksFailedWhenEnqueueFails(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{fail: true}
	svc := NewExportJobService(repo, queue, nil, nil, ExportJobServiceConfig{})

	_, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:     models.ExportTypePayments,
		SchoolID: uuid.NewString(),
		Format:   models.ExportFormatCSV,
	}, platformAdmin())
	require.Error(t, err)
	for _, job := range repo.jobs {
		require.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobStatusOwnership(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &dispatcherStub{}
	svc := NewExportJobService(repo, queue, nil, nil, ExportJobServiceConfig{})
	schoolID := uuid.NewString()
	owner := schoolAdmin(schoolID)

	resp, err := svc.CreateJob(context.Background(), dto.ExportRequest{
		Type:   models.ExportTypePayments,
		Format: models.ExportFormatCSV,
	}, owner)
	require.NoError(t, err)

	status, err := svc.GetStatus(context.Background(), resp.ID, owner)
	require.NoError(t, err)
	require.Equal(t, models.ExportStatusQueued, status.Status)

	_, err = svc.GetStatus(context.Background(), resp.ID, schoolAdmin(uuid.NewString()))
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	// Platform admins can always inspect jobs.
	_, err = svc.GetStatus(context.Background(), resp.ID, platformAdmin())
	require.NoError(t, err)
}

func TestExportWorkerFinishesJob(t *testing.T) {
	repo := newExportJobRepoStub()
	job := &models.ExportJob{Type: models.ExportTypePayments, Status: models.ExportStatusQueued}
	require.NoError(t, repo.Create(context.Background(), job))

	worker := NewExportWorker(repo, &generatorStub{result: &ExportResult{URL: "/api/v1/exports/download/tok"}}, 3, nil)
	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID}))

	stored := repo.jobs[job.ID]
	require.Equal(t, models.ExportStatusFinished, stored.Status)
	require.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
}

func TestExportWorkerRequeuesThenFails(t *testing.T) {
	repo := newExportJobRepoStub()
	job := &models.ExportJob{Type: models.ExportTypePayments, Status: models.ExportStatusQueued}
	require.NoError(t, repo.Create(context.Background(), job))

	worker := NewExportWorker(repo, &generatorStub{err: errors.New("boom")}, 2, nil)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 0}))
	require.Equal(t, models.ExportStatusQueued, repo.jobs[job.ID].Status)

	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 2}))
	require.Equal(t, models.ExportStatusFailed, repo.jobs[job.ID].Status)
	require.NotNil(t, repo.jobs[job.ID].FinishedAt)
}
