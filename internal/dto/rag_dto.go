package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type IngestDocumentRequest struct {
	Path     string `json:"path" validate:"required"`
	SourceId string `json:"source_id"`
}

type AskQuestionRequest struct {
	Question string `json:"question" validate:"required"`
	TopK     int    `json:"top_k" validate:"omitempty,gte=1,lte=50"`
}

type JobSubmittedResponse struct {
	JobId uuid.UUID `json:"job_id"`
}

type JobStatusResponse struct {
	JobId        uuid.UUID       `json:"job_id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result,omitempty"`
	ErrorStep    string          `json:"error_step,omitempty"`
	ErrorKind    string          `json:"error_kind,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}

type CancelJobResponse struct {
	JobId  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// JobQueueMessage is the payload published to the in-process queue when a
// job is submitted or re-enqueued.
type JobQueueMessage struct {
	JobId uuid.UUID `json:"job_id"`
}
