package entity

import (
	"encoding/json"
	"time"

	"doc-qa-be/internal/constant"

	"github.com/google/uuid"
)

// Job is one asynchronous unit of ingest or query work. StepResults holds
// the committed output of every finished step so a redelivered or resumed
// job skips work it already did.
type Job struct {
	Id              uuid.UUID
	Kind            string
	Status          string
	InputPayload    json.RawMessage
	StepResults     map[string]json.RawMessage
	ResultPayload   json.RawMessage
	ErrorStep       string
	ErrorKind       string
	ErrorMessage    string
	CancelRequested bool
	CreatedAt       time.Time
	UpdatedAt       *time.Time
	FinishedAt      *time.Time
}

// Terminal reports whether the job can no longer change state.
func (j *Job) Terminal() bool {
	return j.Status == constant.JobStatusSucceeded ||
		j.Status == constant.JobStatusFailed ||
		j.Status == constant.JobStatusCancelled
}
