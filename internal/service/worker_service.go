package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/dto"
	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/pkg/logger"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/internal/repository/memory"
	"doc-qa-be/internal/repository/specification"
	"doc-qa-be/pkg/apperr"
	"doc-qa-be/pkg/events"
	"doc-qa-be/pkg/extractor"
	pktNats "doc-qa-be/pkg/nats"
	"doc-qa-be/pkg/rag/ingest"
	"doc-qa-be/pkg/rag/prompt"
	"doc-qa-be/pkg/rag/query"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

var errJobCancelled = errors.New("job cancelled")

type IWorkerService interface {
	// Start subscribes to both job topics and re-enqueues jobs that were
	// in flight when the previous process stopped.
	Start(ctx context.Context) error
}

type workerService struct {
	pubSub         *gochannel.GoChannel
	jobRepository  contract.JobRepository
	ingestPipeline *ingest.Pipeline
	queryPipeline  *query.Pipeline
	resultCache    *memory.ResultCache
	publisher      IPublisherService
	eventPublisher *pktNats.Publisher
	sysLogger      logger.ILogger
	ingestTopic    string
	queryTopic     string
	stepMaxRetries int
}

func NewWorkerService(
	pubSub *gochannel.GoChannel,
	jobRepository contract.JobRepository,
	ingestPipeline *ingest.Pipeline,
	queryPipeline *query.Pipeline,
	resultCache *memory.ResultCache,
	publisher IPublisherService,
	eventPublisher *pktNats.Publisher,
	sysLogger logger.ILogger,
	ingestTopic string,
	queryTopic string,
	stepMaxRetries int,
) IWorkerService {
	if stepMaxRetries < 1 {
		stepMaxRetries = 1
	}
	return &workerService{
		pubSub:         pubSub,
		jobRepository:  jobRepository,
		ingestPipeline: ingestPipeline,
		queryPipeline:  queryPipeline,
		resultCache:    resultCache,
		publisher:      publisher,
		eventPublisher: eventPublisher,
		sysLogger:      sysLogger,
		ingestTopic:    ingestTopic,
		queryTopic:     queryTopic,
		stepMaxRetries: stepMaxRetries,
	}
}

func (ws *workerService) Start(ctx context.Context) error {
	for _, topic := range []string{ws.ingestTopic, ws.queryTopic} {
		messages, err := ws.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go func() {
			// Jobs are independent of each other; only the steps inside one
			// job are sequential. Each message owns its own job row, so it
			// gets its own goroutine. Acking up front releases the next
			// delivery: retries happen inside the step runner and terminal
			// failures are recorded on the job row, so redelivery buys
			// nothing.
			for msg := range messages {
				msg.Ack()
				go ws.processMessage(ctx, msg)
			}
		}()
	}

	return ws.resumeUnfinished(ctx)
}

// resumeUnfinished re-enqueues every job the last process left behind.
// The step results saved in the row make the re-run skip finished work.
func (ws *workerService) resumeUnfinished(ctx context.Context) error {
	unfinished, err := ws.jobRepository.FindAll(ctx, specification.ByStatuses{
		Statuses: []string{constant.JobStatusPending, constant.JobStatusRunning},
	})
	if err != nil {
		return err
	}

	for _, job := range unfinished {
		topic := ws.ingestTopic
		if job.Kind == constant.JobKindAnswerQuestion {
			topic = ws.queryTopic
		}

		queueMsg, err := json.Marshal(dto.JobQueueMessage{JobId: job.Id})
		if err != nil {
			continue
		}
		if err := ws.publisher.Publish(ctx, topic, queueMsg); err != nil {
			ws.sysLogger.Error("worker_service", "failed to re-enqueue job", map[string]interface{}{
				"job_id": job.Id.String(),
				"error":  err.Error(),
			})
			continue
		}
		ws.sysLogger.Info("worker_service", "re-enqueued unfinished job", map[string]interface{}{
			"job_id": job.Id.String(),
			"kind":   job.Kind,
			"status": job.Status,
		})
	}
	return nil
}

func (ws *workerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.JobQueueMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		ws.sysLogger.Error("worker_service", "invalid queue message", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	job, err := ws.jobRepository.FindOne(ctx, specification.ByID{ID: payload.JobId})
	if err != nil {
		ws.sysLogger.Error("worker_service", "failed to load job", map[string]interface{}{
			"job_id": payload.JobId.String(),
			"error":  err.Error(),
		})
		return
	}
	if job == nil || job.Terminal() {
		return
	}

	ws.handleJob(ctx, job)
}

func (ws *workerService) handleJob(ctx context.Context, job *entity.Job) {
	if job.CancelRequested {
		ws.finalizeCancelled(ctx, job)
		return
	}

	job.Status = constant.JobStatusRunning
	if err := ws.persistJob(ctx, job); err != nil {
		ws.sysLogger.Error("worker_service", "failed to mark job running", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}

	var err error
	switch job.Kind {
	case constant.JobKindIngestDocument:
		err = ws.runIngestJob(ctx, job)
	case constant.JobKindAnswerQuestion:
		err = ws.runQueryJob(ctx, job)
	default:
		err = apperr.WrapStep("dispatch", errors.New("unknown job kind "+job.Kind))
	}

	if errors.Is(err, errJobCancelled) {
		ws.finalizeCancelled(ctx, job)
		return
	}
	if err != nil {
		ws.finalizeFailed(ctx, job, err)
		return
	}
	ws.finalizeSucceeded(ctx, job)
}

func (ws *workerService) runIngestJob(ctx context.Context, job *entity.Job) error {
	var input dto.IngestDocumentRequest
	if err := json.Unmarshal(job.InputPayload, &input); err != nil {
		return apperr.WrapStep(constant.StepExtractChunks, err)
	}

	chunks, err := runStep(ctx, ws, job, constant.StepExtractChunks, func(ctx context.Context) ([]extractor.Chunk, error) {
		return ws.ingestPipeline.ExtractChunks(extractor.Document{
			SourceId: input.SourceId,
			Path:     input.Path,
		})
	})
	if err != nil {
		return err
	}

	vectors, err := runStep(ctx, ws, job, constant.StepEmbedChunks, func(ctx context.Context) ([][]float32, error) {
		return ws.ingestPipeline.EmbedChunks(ctx, chunks)
	})
	if err != nil {
		return err
	}

	result, err := runStep(ctx, ws, job, constant.StepUpsertRecords, func(ctx context.Context) (*ingest.Result, error) {
		return ws.ingestPipeline.UpsertRecords(ctx, chunks, vectors)
	})
	if err != nil {
		return err
	}

	job.ResultPayload, err = json.Marshal(result)
	return err
}

func (ws *workerService) runQueryJob(ctx context.Context, job *entity.Job) error {
	var input dto.AskQuestionRequest
	if err := json.Unmarshal(job.InputPayload, &input); err != nil {
		return apperr.WrapStep(constant.StepEmbedQuestion, err)
	}

	vector, err := runStep(ctx, ws, job, constant.StepEmbedQuestion, func(ctx context.Context) ([]float32, error) {
		return ws.queryPipeline.EmbedQuestion(ctx, input.Question)
	})
	if err != nil {
		return err
	}

	chunks, err := runStep(ctx, ws, job, constant.StepSearchChunks, func(ctx context.Context) ([]prompt.ContextChunk, error) {
		return ws.queryPipeline.SearchChunks(ctx, vector, input.TopK)
	})
	if err != nil {
		return err
	}

	contextBlock, err := runStep(ctx, ws, job, constant.StepComposeContext, func(ctx context.Context) (string, error) {
		return ws.queryPipeline.ComposeContext(chunks), nil
	})
	if err != nil {
		return err
	}

	answer, err := runStep(ctx, ws, job, constant.StepGenerateAnswer, func(ctx context.Context) (string, error) {
		return ws.queryPipeline.GenerateAnswer(ctx, input.Question, contextBlock)
	})
	if err != nil {
		return err
	}

	job.ResultPayload, err = json.Marshal(query.AnswerResult{
		Answer:  answer,
		Sources: chunks,
	})
	return err
}

// runStep executes one pipeline stage with resume, retry and cancellation
// semantics. A result already stored on the job is returned as-is; a fresh
// result is persisted before the next stage may run.
func runStep[T any](ctx context.Context, ws *workerService, job *entity.Job, step string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok := job.StepResults[step]; ok {
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		delete(job.StepResults, step)
	}

	cancelled, err := ws.cancelRequested(ctx, job)
	if err != nil {
		return zero, apperr.WrapStep(step, err)
	}
	if cancelled {
		return zero, errJobCancelled
	}

	var out T
	for attempt := 1; ; attempt++ {
		out, err = fn(ctx)
		if err == nil {
			break
		}
		if !apperr.Retryable(err) || attempt >= ws.stepMaxRetries {
			return zero, apperr.WrapStep(step, err)
		}

		ws.sysLogger.Warn("worker_service", "step failed, retrying", map[string]interface{}{
			"job_id":  job.Id.String(),
			"step":    step,
			"attempt": attempt,
			"error":   err.Error(),
		})
		select {
		case <-ctx.Done():
			return zero, apperr.WrapStep(step, ctx.Err())
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		}
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return zero, apperr.WrapStep(step, err)
	}
	if job.StepResults == nil {
		job.StepResults = make(map[string]json.RawMessage)
	}
	job.StepResults[step] = raw
	if err := ws.persistJob(ctx, job); err != nil {
		return zero, apperr.WrapStep(step, err)
	}

	return out, nil
}

// persistJob writes the job row without ever clearing a cancel flag that
// the API set while a step was running.
func (ws *workerService) persistJob(ctx context.Context, job *entity.Job) error {
	if !job.CancelRequested {
		fresh, err := ws.jobRepository.FindOne(ctx, specification.ByID{ID: job.Id})
		if err != nil {
			return err
		}
		if fresh != nil && fresh.CancelRequested {
			job.CancelRequested = true
		}
	}
	return ws.jobRepository.Update(ctx, job)
}

// cancelRequested re-reads the row so a cancel issued after the job was
// loaded is still honored at the next boundary.
func (ws *workerService) cancelRequested(ctx context.Context, job *entity.Job) (bool, error) {
	fresh, err := ws.jobRepository.FindOne(ctx, specification.ByID{ID: job.Id})
	if err != nil {
		return false, err
	}
	if fresh == nil {
		return false, nil
	}
	job.CancelRequested = fresh.CancelRequested
	return fresh.CancelRequested, nil
}

func (ws *workerService) finalizeSucceeded(ctx context.Context, job *entity.Job) {
	now := time.Now()
	job.Status = constant.JobStatusSucceeded
	job.FinishedAt = &now
	if err := ws.jobRepository.Update(ctx, job); err != nil {
		ws.sysLogger.Error("worker_service", "failed to finalize job", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}

	ws.resultCache.Put(ctx, job)
	ws.publishEvent(ctx, events.NewJobSucceededEvent(job.Id.String(), job.Kind))

	ws.sysLogger.Info("worker_service", "job succeeded", map[string]interface{}{
		"job_id": job.Id.String(),
		"kind":   job.Kind,
	})
}

func (ws *workerService) finalizeFailed(ctx context.Context, job *entity.Job, cause error) {
	now := time.Now()
	job.Status = constant.JobStatusFailed
	job.FinishedAt = &now
	job.ErrorMessage = cause.Error()
	job.ErrorKind = string(apperr.KindOf(cause))

	var jobErr *apperr.JobError
	if errors.As(cause, &jobErr) {
		job.ErrorStep = jobErr.Step
	}

	if err := ws.jobRepository.Update(ctx, job); err != nil {
		ws.sysLogger.Error("worker_service", "failed to finalize job", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}

	ws.resultCache.Put(ctx, job)
	ws.publishEvent(ctx, events.NewJobFailedEvent(
		job.Id.String(), job.Kind, job.ErrorStep, job.ErrorKind, job.ErrorMessage,
	))

	ws.sysLogger.Error("worker_service", "job failed", map[string]interface{}{
		"job_id":     job.Id.String(),
		"kind":       job.Kind,
		"step":       job.ErrorStep,
		"error_kind": job.ErrorKind,
		"error":      job.ErrorMessage,
	})
}

func (ws *workerService) finalizeCancelled(ctx context.Context, job *entity.Job) {
	now := time.Now()
	job.Status = constant.JobStatusCancelled
	job.FinishedAt = &now
	if err := ws.jobRepository.Update(ctx, job); err != nil {
		ws.sysLogger.Error("worker_service", "failed to finalize job", map[string]interface{}{
			"job_id": job.Id.String(),
			"error":  err.Error(),
		})
		return
	}

	ws.resultCache.Put(ctx, job)
	ws.publishEvent(ctx, events.NewJobCancelledEvent(job.Id.String(), job.Kind))

	ws.sysLogger.Info("worker_service", "job cancelled", map[string]interface{}{
		"job_id": job.Id.String(),
	})
}

func (ws *workerService) publishEvent(ctx context.Context, event events.Event) {
	if ws.eventPublisher == nil {
		return
	}
	if err := ws.eventPublisher.Publish(ctx, event); err != nil {
		ws.sysLogger.Warn("worker_service", "failed to publish lifecycle event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}
