package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a failure class within one error family. The job worker
// uses it to decide between retrying a step and failing the job.
type Kind string

const (
	// Extraction kinds
	KindEmptyDocument     Kind = "EMPTY_DOCUMENT"
	KindUnsupportedFormat Kind = "UNSUPPORTED_FORMAT"
	KindCorruptDocument   Kind = "CORRUPT_DOCUMENT"

	// Embedding / generation kinds
	KindProviderFailure   Kind = "PROVIDER_FAILURE"
	KindProviderTimeout   Kind = "PROVIDER_TIMEOUT"
	KindDimensionMismatch Kind = "DIMENSION_MISMATCH"

	// Store kinds
	KindCollectionNotFound Kind = "COLLECTION_NOT_FOUND"
	KindDimensionConflict  Kind = "DIMENSION_CONFLICT"
	KindPartialUpsert      Kind = "PARTIAL_UPSERT"
	KindStoreQuery         Kind = "STORE_QUERY"
)

// ExtractionError reports unusable input. Never retried.
type ExtractionError struct {
	Kind Kind
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s)", e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func NewExtractionError(kind Kind, err error) *ExtractionError {
	return &ExtractionError{Kind: kind, Err: err}
}

// EmbeddingError reports an embedding provider failure. Provider failures
// and timeouts are transient; a dimension mismatch means the deployment is
// misconfigured and retrying cannot help.
type EmbeddingError struct {
	Kind Kind
	Err  error
}

func (e *EmbeddingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("embedding failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("embedding failed (%s)", e.Kind)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func NewEmbeddingError(kind Kind, err error) *EmbeddingError {
	return &EmbeddingError{Kind: kind, Err: err}
}

// StoreError reports a vector store failure.
type StoreError struct {
	Kind      Kind
	FailedIDs []string // set for PARTIAL_UPSERT
	Err       error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("vector store failed (%s)", e.Kind)
	if len(e.FailedIDs) > 0 {
		msg += fmt.Sprintf(" ids=[%s]", strings.Join(e.FailedIDs, ","))
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

func NewStoreError(kind Kind, err error) *StoreError {
	return &StoreError{Kind: kind, Err: err}
}

// GenerationError reports an LLM provider failure. Always transient.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("generation failed (%s)", e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func NewGenerationError(kind Kind, err error) *GenerationError {
	return &GenerationError{Kind: kind, Err: err}
}

// JobError wraps a step failure with job context for the final record.
type JobError struct {
	Step string
	Kind Kind
	Err  error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job step %q failed (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *JobError) Unwrap() error { return e.Err }

func WrapStep(step string, err error) *JobError {
	return &JobError{Step: step, Kind: KindOf(err), Err: err}
}

// KindOf extracts the Kind carried by err, or PROVIDER_FAILURE for plain
// errors that bubbled up unclassified.
func KindOf(err error) Kind {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	var me *EmbeddingError
	if errors.As(err, &me) {
		return me.Kind
	}
	var se *StoreError
	if errors.As(err, &se) {
		return se.Kind
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return KindProviderFailure
}

// Retryable reports whether a fresh attempt of the same step could succeed.
// Configuration-level mismatches and unusable input are final.
func Retryable(err error) bool {
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return false
	}
	switch KindOf(err) {
	case KindDimensionMismatch, KindDimensionConflict:
		return false
	default:
		return true
	}
}
