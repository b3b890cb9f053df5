package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobValidate(t *testing.T) {
	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	execution := Execution{
		Type:        ExecHTTPRequest,
		HTTPRequest: HTTPRequestSpec{URL: "http://sla.internal/check", Method: "POST"},
	}

	tests := []struct {
		name    string
		job     Job
		wantErr error
	}{
		{
			name: "one-time job",
			job:  Job{Type: JobOneTime, ExecutionTime: &at, Execution: execution},
		},
		{
			name: "recurring job",
			job:  Job{Type: JobRecurring, Expression: "0 * * * *", Execution: execution},
		},
		{
			name:    "one-time without execution time",
			job:     Job{Type: JobOneTime, Execution: execution},
			wantErr: ErrMissingExecutionTime,
		},
		{
			name:    "recurring without expression",
			job:     Job{Type: JobRecurring, Execution: execution},
			wantErr: ErrMissingCronExpression,
		},
		{
			name:    "unknown type",
			job:     Job{Type: "ANNUAL", ExecutionTime: &at, Execution: execution},
			wantErr: ErrInvalidJobType,
		},
		{
			name: "missing callback url",
			job: Job{
				Type:          JobOneTime,
				ExecutionTime: &at,
				Execution:     Execution{Type: ExecHTTPRequest},
			},
			wantErr: ErrMissingCallbackURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestJobHasTag(t *testing.T) {
	job := Job{Tags: []string{"T-42", "batch-7"}}

	assert.True(t, job.HasTag([]string{"T-42"}))
	assert.True(t, job.HasTag([]string{"nope", "batch-7"}))
	assert.False(t, job.HasTag([]string{"T-43"}))
	assert.False(t, job.HasTag(nil))
}
