package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobType(t *testing.T) {
	tests := []struct {
		name     string
		jobType  JobType
		expected string
	}{
		{"Webhook Processing", JobTypeWebhookProcess, "webhook_event_processing"},
		{"Webhook Delivery", JobTypeWebhookDelivery, "webhook_delivery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.jobType))
		})
	}
}

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"Pending", JobStatusPending, "pending"},
		{"Processing", JobStatusProcessing, "processing"},
		{"Completed", JobStatusCompleted, "completed"},
		{"Failed", JobStatusFailed, "failed"},
		{"Retrying", JobStatusRetrying, "retrying"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.status))
		})
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := &Job{ID: "job-1", Type: JobTypeWebhookProcess, Status: JobStatusPending}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestJob_MarkAsFailedBumpsRetryCount(t *testing.T) {
	job := &Job{ID: "job-1", MaxRetries: 3}

	job.MarkAsFailed("boom")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "boom", job.ErrorMsg)
	assert.Equal(t, 1, job.RetryCount)
}

func TestJob_IsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		job       *Job
		retryable bool
	}{
		{name: "fresh job", job: &Job{RetryCount: 0, MaxRetries: 3}, retryable: true},
		{name: "at the limit", job: &Job{RetryCount: 3, MaxRetries: 3}, retryable: true},
		{name: "over the limit", job: &Job{RetryCount: 4, MaxRetries: 3}, retryable: false},
		{name: "no retries configured", job: &Job{RetryCount: 1, MaxRetries: 0}, retryable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, tt.job.IsRetryable())
		})
	}
}

func TestPayloadUint(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		want    uint
		wantErr bool
	}{
		{name: "float64 from JSON", payload: map[string]interface{}{"record_id": float64(42)}, want: 42},
		{name: "native uint", payload: map[string]interface{}{"record_id": uint(7)}, want: 7},
		{name: "native int", payload: map[string]interface{}{"record_id": 9}, want: 9},
		{name: "missing key", payload: map[string]interface{}{}, wantErr: true},
		{name: "negative", payload: map[string]interface{}{"record_id": float64(-1)}, wantErr: true},
		{name: "string value", payload: map[string]interface{}{"record_id": "42"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := payloadUint(tt.payload, "record_id")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
