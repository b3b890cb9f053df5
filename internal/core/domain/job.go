package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Pre-defined errors for job validation.
var (
	ErrMissingExecutionTime  = errors.New("one-time job requires an execution time")
	ErrMissingCronExpression = errors.New("recurring job requires a cron expression")
	ErrInvalidJobType        = errors.New("job type must be ONE_TIME or RECURRING")
	ErrMissingCallbackURL    = errors.New("job execution requires a callback URL")
)

// JobType distinguishes one-shot jobs from cron-recurring ones.
type JobType string

const (
	JobOneTime   JobType = "ONE_TIME"
	JobRecurring JobType = "RECURRING"
)

// JobStatus is the persisted lifecycle state of a job. PENDING rows wait for
// a sweep to pick them up; SCHEDULED rows have an in-process timer armed.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobScheduled JobStatus = "SCHEDULED"
)

// ExecutionType names the kind of action a job performs on fire.
type ExecutionType string

// ExecHTTPRequest is the only supported execution type: an outbound HTTP call.
const ExecHTTPRequest ExecutionType = "HTTP_REQ"

// NameValue is a header or query parameter pair.
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// HTTPRequestSpec describes the stored outbound call fired at execution time.
type HTTPRequestSpec struct {
	URL     string          `json:"url"`
	Method  string          `json:"method"`
	Headers []NameValue     `json:"headers,omitempty"`
	Params  []NameValue     `json:"params,omitempty"`
	Body    json.RawMessage `json:"data,omitempty"`
}

// Execution wraps the action payload of a job.
type Execution struct {
	Type        ExecutionType   `json:"type"`
	HTTPRequest HTTPRequestSpec `json:"httpRequest"`
}

// Job is a persisted, time-triggered HTTP callback. Tags are used for bulk
// cancellation, typically carrying the owning ticket id. ExecutionTime is an
// absolute UTC timestamp, recomputed after each fire for recurring jobs.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	Tags          []string   `json:"tags,omitempty"`
	Type          JobType    `json:"type"`
	Expression    string     `json:"expression,omitempty"`
	ExecutionTime *time.Time `json:"executionTime,omitempty"`
	Status        JobStatus  `json:"status"`
	Execution     Execution  `json:"execution"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Validate checks structural job invariants. Cron expressions are parsed by
// the scheduler, which owns the cron library; here only presence is enforced.
func (j *Job) Validate() error {
	switch j.Type {
	case JobOneTime:
		if j.ExecutionTime == nil {
			return ErrMissingExecutionTime
		}
	case JobRecurring:
		if j.Expression == "" {
			return ErrMissingCronExpression
		}
	default:
		return ErrInvalidJobType
	}
	if j.Execution.Type == ExecHTTPRequest && j.Execution.HTTPRequest.URL == "" {
		return ErrMissingCallbackURL
	}
	return nil
}

// HasTag reports whether the job carries any of the given tags.
func (j *Job) HasTag(tags []string) bool {
	for _, want := range tags {
		for _, have := range j.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}
