package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/internal/repository/specification"

	"github.com/google/uuid"
)

// JobRepository keeps jobs in memory. It understands the subset of
// specifications the coordinator actually uses (ByID, ByStatuses), which is
// enough for tests and single-process runs without Postgres.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*entity.Job
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: make(map[uuid.UUID]*entity.Job),
	}
}

var _ contract.JobRepository = (*JobRepository)(nil)

func (r *JobRepository) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneJob(job)
	r.jobs[job.Id] = cp
	return nil
}

func (r *JobRepository) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := cloneJob(job)
	r.jobs[job.Id] = cp
	return nil
}

func (r *JobRepository) FindOne(_ context.Context, specs ...specification.Specification) (*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.jobs {
		if matches(job, specs) {
			return cloneJob(job), nil
		}
	}
	return nil, nil
}

func (r *JobRepository) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*entity.Job
	for _, job := range r.jobs {
		if matches(job, specs) {
			out = append(out, cloneJob(job))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *JobRepository) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, job := range r.jobs {
		if matches(job, specs) {
			count++
		}
	}
	return count, nil
}

func matches(job *entity.Job, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if job.Id != s.ID {
				return false
			}
		case specification.ByStatuses:
			found := false
			for _, status := range s.Statuses {
				if job.Status == status {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case specification.ByKind:
			if job.Kind != s.Kind {
				return false
			}
		case specification.OrderBy, specification.Pagination:
			// Ordering and paging are not needed by the coordinator's
			// in-memory callers.
		}
	}
	return true
}

func cloneJob(job *entity.Job) *entity.Job {
	cp := *job
	if job.StepResults != nil {
		cp.StepResults = make(map[string]json.RawMessage, len(job.StepResults))
		for k, v := range job.StepResults {
			cp.StepResults[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &cp
}
