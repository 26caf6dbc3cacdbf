package constant

// Job kinds
const (
	JobKindIngestDocument = "INGEST_DOCUMENT"
	JobKindAnswerQuestion = "ANSWER_QUESTION"
)

// Job statuses
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// Ingest pipeline step names. Step outputs are persisted under these keys,
// so renaming one invalidates resume data for in-flight jobs.
const (
	StepExtractChunks = "extract-chunks"
	StepEmbedChunks   = "embed-chunks"
	StepUpsertRecords = "upsert-records"
)

// Query pipeline step names
const (
	StepEmbedQuestion  = "embed-question"
	StepSearchChunks   = "search-chunks"
	StepComposeContext = "compose-context"
	StepGenerateAnswer = "generate-answer"
)
