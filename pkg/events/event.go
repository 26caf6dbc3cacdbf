package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "JOB_SUCCEEDED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent holds the common fields shared by every event.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewJobSucceededEvent announces a finished job to downstream consumers.
func NewJobSucceededEvent(jobId string, kind string) Event {
	return BaseEvent{
		Type: "JOB_SUCCEEDED",
		Data: map[string]interface{}{
			"job_id": jobId,
			"kind":   kind,
		},
		OccurredAt: time.Now(),
	}
}

// NewJobFailedEvent announces a terminally failed job, including which
// step failed and how.
func NewJobFailedEvent(jobId string, kind string, step string, errorKind string, message string) Event {
	return BaseEvent{
		Type: "JOB_FAILED",
		Data: map[string]interface{}{
			"job_id":     jobId,
			"kind":       kind,
			"step":       step,
			"error_kind": errorKind,
			"message":    message,
		},
		OccurredAt: time.Now(),
	}
}

// NewJobCancelledEvent announces a job stopped at a step boundary on
// operator request.
func NewJobCancelledEvent(jobId string, kind string) Event {
	return BaseEvent{
		Type: "JOB_CANCELLED",
		Data: map[string]interface{}{
			"job_id": jobId,
			"kind":   kind,
		},
		OccurredAt: time.Now(),
	}
}
