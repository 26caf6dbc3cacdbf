package mapper

import (
	"encoding/json"
	"time"

	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/model"

	"gorm.io/datatypes"
)

type JobMapper struct{}

func NewJobMapper() *JobMapper {
	return &JobMapper{}
}

func (m *JobMapper) ToEntity(j *model.Job) *entity.Job {
	if j == nil {
		return nil
	}

	var updatedAt *time.Time
	if !j.UpdatedAt.IsZero() {
		t := j.UpdatedAt
		updatedAt = &t
	}

	steps := make(map[string]json.RawMessage)
	if len(j.StepResults) > 0 {
		// Corrupt step data is treated as absent: the worker redoes the steps.
		_ = json.Unmarshal(j.StepResults, &steps)
	}

	return &entity.Job{
		Id:              j.Id,
		Kind:            j.Kind,
		Status:          j.Status,
		InputPayload:    json.RawMessage(j.InputPayload),
		StepResults:     steps,
		ResultPayload:   json.RawMessage(j.ResultPayload),
		ErrorStep:       j.ErrorStep,
		ErrorKind:       j.ErrorKind,
		ErrorMessage:    j.ErrorMessage,
		CancelRequested: j.CancelRequested,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       updatedAt,
		FinishedAt:      j.FinishedAt,
	}
}

func (m *JobMapper) ToModel(j *entity.Job) *model.Job {
	if j == nil {
		return nil
	}

	var updatedAt time.Time
	if j.UpdatedAt != nil {
		updatedAt = *j.UpdatedAt
	}

	var steps datatypes.JSON
	if len(j.StepResults) > 0 {
		if raw, err := json.Marshal(j.StepResults); err == nil {
			steps = datatypes.JSON(raw)
		}
	}

	return &model.Job{
		Id:              j.Id,
		Kind:            j.Kind,
		Status:          j.Status,
		InputPayload:    datatypes.JSON(j.InputPayload),
		StepResults:     steps,
		ResultPayload:   datatypes.JSON(j.ResultPayload),
		ErrorStep:       j.ErrorStep,
		ErrorKind:       j.ErrorKind,
		ErrorMessage:    j.ErrorMessage,
		CancelRequested: j.CancelRequested,
		CreatedAt:       j.CreatedAt,
		UpdatedAt:       updatedAt,
		FinishedAt:      j.FinishedAt,
	}
}
