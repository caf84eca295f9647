package jobmodel

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy in the error-handling design. Check
// with errors.Is; the typed wrappers below carry the job id and any
// field errors and unwrap to these.
var (
	// ErrJobNotFound is returned on a registry or engine lookup miss.
	ErrJobNotFound = errors.New("jobmodel: job not found")
	// ErrJobAlreadyExists is returned when create targets a duplicate id.
	ErrJobAlreadyExists = errors.New("jobmodel: job already exists")
	// ErrInvalidJobData is returned on schema validation failure.
	ErrInvalidJobData = errors.New("jobmodel: invalid job data")
	// ErrJobPersistence wraps any store exception.
	ErrJobPersistence = errors.New("jobmodel: job persistence error")
	// ErrJobFieldsRequirePersistence is returned when annotate is asked
	// to set a field the persistence schema would accept.
	ErrJobFieldsRequirePersistence = errors.New("jobmodel: fields require persistence")
	// ErrImmutableJobFields is returned when annotate or update is asked
	// to change the reserved id field.
	ErrImmutableJobFields = errors.New("jobmodel: immutable job fields")
	// ErrInvalidMessage is returned when a cross-process bus operation
	// cannot be deserialized.
	ErrInvalidMessage = errors.New("jobmodel: invalid message")
	// ErrUnknownOperationKind is a programming error: notify saw an
	// OpKind it doesn't recognize.
	ErrUnknownOperationKind = errors.New("jobmodel: unknown operation kind")
)

// JobNotFoundError carries the id of the missing job.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %q not found", e.JobID)
}

func (e *JobNotFoundError) Unwrap() error { return ErrJobNotFound }

// NewJobNotFound builds a JobNotFoundError.
func NewJobNotFound(jobID string) error {
	return &JobNotFoundError{JobID: jobID}
}

// JobAlreadyExistsError carries the duplicate id.
type JobAlreadyExistsError struct {
	JobID string
}

func (e *JobAlreadyExistsError) Error() string {
	return fmt.Sprintf("job %q already exists", e.JobID)
}

func (e *JobAlreadyExistsError) Unwrap() error { return ErrJobAlreadyExists }

// NewJobAlreadyExists builds a JobAlreadyExistsError.
func NewJobAlreadyExists(jobID string) error {
	return &JobAlreadyExistsError{JobID: jobID}
}

// InvalidJobDataError accumulates every failing field instead of
// short-circuiting on the first one, mirroring errutils.MultiError.
type InvalidJobDataError struct {
	JobID       string
	FieldErrors map[string]string
}

func (e *InvalidJobDataError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("invalid job data for %q: %d field error(s)", e.JobID, len(e.FieldErrors))
	}
	return fmt.Sprintf("invalid job data: %d field error(s)", len(e.FieldErrors))
}

func (e *InvalidJobDataError) Unwrap() error { return ErrInvalidJobData }

// NewInvalidJobData builds an InvalidJobDataError. jobID may be empty
// when the payload never reached a known id (e.g. schema failed before
// defaulting id from taskDefinition).
func NewInvalidJobData(jobID string, fieldErrors map[string]string) error {
	return &InvalidJobDataError{JobID: jobID, FieldErrors: fieldErrors}
}

// JobPersistenceError wraps the underlying store failure.
type JobPersistenceError struct {
	JobID string
	Cause error
}

func (e *JobPersistenceError) Error() string {
	return fmt.Sprintf("persistence error for job %q: %v", e.JobID, e.Cause)
}

func (e *JobPersistenceError) Unwrap() error { return ErrJobPersistence }

// NewJobPersistenceError builds a JobPersistenceError.
func NewJobPersistenceError(jobID string, cause error) error {
	return &JobPersistenceError{JobID: jobID, Cause: cause}
}

// JobFieldsRequirePersistenceError carries the offending field names.
type JobFieldsRequirePersistenceError struct {
	JobID  string
	Fields []string
}

func (e *JobFieldsRequirePersistenceError) Error() string {
	return fmt.Sprintf("fields %v for job %q require persistence via update, not annotate", e.Fields, e.JobID)
}

func (e *JobFieldsRequirePersistenceError) Unwrap() error { return ErrJobFieldsRequirePersistence }

// NewJobFieldsRequirePersistence builds a JobFieldsRequirePersistenceError.
func NewJobFieldsRequirePersistence(jobID string, fields []string) error {
	return &JobFieldsRequirePersistenceError{JobID: jobID, Fields: fields}
}

// ImmutableJobFieldsError carries the reserved field names that were
// rejected.
type ImmutableJobFieldsError struct {
	JobID  string
	Fields []string
}

func (e *ImmutableJobFieldsError) Error() string {
	return fmt.Sprintf("fields %v for job %q are immutable", e.Fields, e.JobID)
}

func (e *ImmutableJobFieldsError) Unwrap() error { return ErrImmutableJobFields }

// NewImmutableJobFields builds an ImmutableJobFieldsError.
func NewImmutableJobFields(jobID string, fields []string) error {
	return &ImmutableJobFieldsError{JobID: jobID, Fields: fields}
}
