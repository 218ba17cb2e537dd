package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToBPMNError(t *testing.T) {
	stdErr := NewApplicationNotFoundError("a1")
	bpmnErr := ConvertToBPMNError(stdErr)

	assert.Equal(t, "APPLICATION_NOT_FOUND", bpmnErr.Code)
	assert.False(t, bpmnErr.Retryable)
	assert.Equal(t, 0, bpmnErr.Retries)

	vars := bpmnErr.ToErrorVariables()
	assert.Equal(t, "APPLICATION_NOT_FOUND", vars["errorCode"])
	assert.Equal(t, "APPLICATION_NOT_FOUND", vars["originalErrorCode"])
	assert.Equal(t, "a1", vars["applicationId"])
}

func TestConvertToBPMNError_Retryable(t *testing.T) {
	bpmnErr := ConvertToBPMNError(NewQueryExecutionFailedError("list_applications", fmt.Errorf("conn reset")))
	assert.Equal(t, "DATABASE_UNAVAILABLE", bpmnErr.Code)
	assert.True(t, bpmnErr.Retryable)
	assert.Equal(t, 3, bpmnErr.Retries)
	assert.Equal(t, "conn reset", bpmnErr.Details)
}

func TestNextRetries(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		remaining int32
		want      int32
		wantThrow bool
	}{
		{"business error is thrown", NewInvalidGuidanceInputError("bad"), 3, 0, true},
		{"retryable decrements", NewNotificationSendFailedError("email", fmt.Errorf("x")), 3, 2, false},
		{"capped by policy", NewQueryTimeoutError("get_application"), 10, 2, false},
		{"last retry is thrown", NewDatabaseConnectionFailedError(fmt.Errorf("x")), 1, 0, true},
		{"no retries left", NewDatabaseConnectionFailedError(fmt.Errorf("x")), 0, 0, true},
		{"internal errors are thrown", NewInternalError(fmt.Errorf("x")), 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, throw := NextRetries(tt.err, tt.remaining)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantThrow, throw)
		})
	}
}

func TestNormalize(t *testing.T) {
	root := stderrors.New("pq: connection refused")
	wrapped := fmt.Errorf("load context: %w", NewDatabaseConnectionFailedError(root))

	stdErr := Normalize(wrapped)
	assert.Equal(t, ErrCodeDatabaseConnectionFailed, stdErr.Code)
	assert.True(t, stderrors.Is(stdErr, root))

	plain := Normalize(stderrors.New("boom"))
	assert.Equal(t, ErrCodeInternal, plain.Code)
	assert.Equal(t, "boom", plain.Details)
	assert.False(t, plain.Retryable)
}

func TestAsStandardError(t *testing.T) {
	_, ok := AsStandardError(stderrors.New("x"))
	assert.False(t, ok)

	stdErr, ok := AsStandardError(fmt.Errorf("wrap: %w", NewInvalidGuidanceInputError("d")))
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidGuidanceInput, stdErr.Code)
	assert.Contains(t, stdErr.Error(), "INVALID_GUIDANCE_INPUT")
}

func TestGetErrorCategoryAndStatus(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		category string
		status   int
	}{
		{ErrCodeInvalidGuidanceInput, "VALIDATION", http.StatusBadRequest},
		{ErrCodeInvalidJobVariables, "VALIDATION", http.StatusBadRequest},
		{ErrCodeApplicationNotFound, "APPLICATION", http.StatusNotFound},
		{ErrCodeChecklistCorrupt, "APPLICATION", http.StatusNotFound},
		{ErrCodeQueryTimeout, "DATABASE", http.StatusServiceUnavailable},
		{ErrCodeNotificationSendFailed, "NOTIFICATION", http.StatusServiceUnavailable},
		{ErrCodeInternal, "OTHER", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.category, GetErrorCategory(tt.code))
			assert.Equal(t, tt.status, HTTPStatus(tt.code))
		})
	}
}

func TestIsRetryableErrorCode(t *testing.T) {
	assert.True(t, IsRetryableErrorCode(ErrCodeQueryExecutionFailed))
	assert.False(t, IsRetryableErrorCode(ErrCodeApplicationNotFound))
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.True(t, IsTransient(stderrors.New("dial tcp: connection refused")))
	assert.True(t, IsTransient(stderrors.New("context deadline exceeded")))
	assert.True(t, IsTransient(stderrors.New("driver: bad connection")))
	assert.False(t, IsTransient(stderrors.New("pq: syntax error at or near")))
}
