package service

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"time"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/dto"
	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/pkg/logger"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/internal/repository/memory"
	"doc-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobAlreadyFinished = errors.New("job already finished")
)

type IJobService interface {
	SubmitIngestJob(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.JobSubmittedResponse, error)
	SubmitQueryJob(ctx context.Context, req *dto.AskQuestionRequest) (*dto.JobSubmittedResponse, error)
	GetJob(ctx context.Context, id uuid.UUID) (*dto.JobStatusResponse, error)
	CancelJob(ctx context.Context, id uuid.UUID) (*dto.CancelJobResponse, error)
}

type jobService struct {
	jobRepository contract.JobRepository
	publisher     IPublisherService
	resultCache   *memory.ResultCache
	sysLogger     logger.ILogger
	ingestTopic   string
	queryTopic    string
}

func NewJobService(
	jobRepository contract.JobRepository,
	publisher IPublisherService,
	resultCache *memory.ResultCache,
	sysLogger logger.ILogger,
	ingestTopic string,
	queryTopic string,
) IJobService {
	return &jobService{
		jobRepository: jobRepository,
		publisher:     publisher,
		resultCache:   resultCache,
		sysLogger:     sysLogger,
		ingestTopic:   ingestTopic,
		queryTopic:    queryTopic,
	}
}

func (s *jobService) SubmitIngestJob(ctx context.Context, req *dto.IngestDocumentRequest) (*dto.JobSubmittedResponse, error) {
	if req.SourceId == "" {
		req.SourceId = filepath.Base(req.Path)
	}
	return s.submit(ctx, constant.JobKindIngestDocument, s.ingestTopic, req)
}

func (s *jobService) SubmitQueryJob(ctx context.Context, req *dto.AskQuestionRequest) (*dto.JobSubmittedResponse, error) {
	return s.submit(ctx, constant.JobKindAnswerQuestion, s.queryTopic, req)
}

func (s *jobService) submit(ctx context.Context, kind string, topic string, input interface{}) (*dto.JobSubmittedResponse, error) {
	inputPayload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	job := &entity.Job{
		Id:           uuid.New(),
		Kind:         kind,
		Status:       constant.JobStatusPending,
		InputPayload: inputPayload,
		StepResults:  make(map[string]json.RawMessage),
		CreatedAt:    time.Now(),
	}

	if err := s.jobRepository.Create(ctx, job); err != nil {
		return nil, err
	}

	queueMsg, err := json.Marshal(dto.JobQueueMessage{JobId: job.Id})
	if err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, topic, queueMsg); err != nil {
		// The job row survives; the startup sweep re-enqueues it.
		s.sysLogger.Error("job_service", "failed to enqueue job", map[string]interface{}{
			"job_id": job.Id.String(),
			"kind":   kind,
			"error":  err.Error(),
		})
		return nil, err
	}

	s.sysLogger.Info("job_service", "job submitted", map[string]interface{}{
		"job_id": job.Id.String(),
		"kind":   kind,
	})

	return &dto.JobSubmittedResponse{JobId: job.Id}, nil
}

func (s *jobService) GetJob(ctx context.Context, id uuid.UUID) (*dto.JobStatusResponse, error) {
	if cached, found := s.resultCache.Get(ctx, id.String()); found {
		return toJobStatusResponse(cached), nil
	}

	job, err := s.jobRepository.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}

	if job.Terminal() {
		s.resultCache.Put(ctx, job)
	}

	return toJobStatusResponse(job), nil
}

func (s *jobService) CancelJob(ctx context.Context, id uuid.UUID) (*dto.CancelJobResponse, error) {
	job, err := s.jobRepository.FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	if job.Terminal() {
		return nil, ErrJobAlreadyFinished
	}

	// The worker observes the flag at the next step boundary and
	// finalizes the job as CANCELLED.
	job.CancelRequested = true
	if err := s.jobRepository.Update(ctx, job); err != nil {
		return nil, err
	}

	s.sysLogger.Info("job_service", "job cancellation requested", map[string]interface{}{
		"job_id": job.Id.String(),
	})

	return &dto.CancelJobResponse{
		JobId:  job.Id,
		Status: job.Status,
	}, nil
}

func toJobStatusResponse(job *entity.Job) *dto.JobStatusResponse {
	return &dto.JobStatusResponse{
		JobId:        job.Id,
		Kind:         job.Kind,
		Status:       job.Status,
		Result:       job.ResultPayload,
		ErrorStep:    job.ErrorStep,
		ErrorKind:    job.ErrorKind,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		FinishedAt:   job.FinishedAt,
	}
}
