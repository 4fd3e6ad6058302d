// Package errors provides the error vocabulary shared by the dialogue engine
// and the BPMN follow-up workers.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Sentinel errors
// ==========================

// Adapters wrap these with fmt.Errorf("%w: %w: %v", ...) so callers can
// branch with errors.Is regardless of which backend failed.
var (
	ErrExternalServiceUnavailable = errors.New("EXTERNAL_SERVICE_UNAVAILABLE")
	ErrMalformedExtraction        = errors.New("MALFORMED_EXTRACTION")
	ErrResourceNotFound           = errors.New("RESOURCE_NOT_FOUND")
	ErrDuplicateLead              = errors.New("DUPLICATE_LEAD_ATTEMPT")
	ErrSessionCorrupted           = errors.New("SESSION_STORE_CORRUPTED")
)

// ==========================
// 2. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeExternalServiceUnavailable ErrorCode = "EXTERNAL_SERVICE_UNAVAILABLE"
	ErrCodeMalformedExtraction        ErrorCode = "MALFORMED_EXTRACTION"
	ErrCodeResourceNotFound           ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeDuplicateLead              ErrorCode = "DUPLICATE_LEAD_ATTEMPT"
	ErrCodeSessionCorrupted           ErrorCode = "SESSION_STORE_CORRUPTED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"

	ErrCodeLLMTimeout      ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMRequestError ErrorCode = "LLM_REQUEST_FAILED"

	ErrCodeCRMSyncFailed          ErrorCode = "CRM_SYNC_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInvalidLeadPayload     ErrorCode = "INVALID_LEAD_PAYLOAD"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 3. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 4. Error Constructors
// ==========================

func newError(code ErrorCode, retryable bool, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalServiceUnavailable, true,
		fmt.Sprintf("External service '%s' unavailable", service), err.Error())
}

func NewTimeoutError(service string, err error) *StandardError {
	se := newError(ErrCodeExternalServiceUnavailable, true,
		fmt.Sprintf("Service '%s' timeout", service), err.Error())
	se.Metadata = map[string]interface{}{"timeout": true}
	return se
}

func NewResourceNotFoundError(resource, details string) *StandardError {
	return newError(ErrCodeResourceNotFound, false,
		fmt.Sprintf("Resource not found: %s", resource), details)
}

func NewDuplicateLeadError(leadID string) *StandardError {
	se := newError(ErrCodeDuplicateLead, false, "Lead already recorded", leadID)
	se.Metadata = map[string]interface{}{"leadId": leadID}
	return se
}

func NewCRMSyncFailedError(err error) *StandardError {
	return newError(ErrCodeCRMSyncFailed, true, "CRM lead sync failed", err.Error())
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, true,
		fmt.Sprintf("Failed to send %s notification", channel), err.Error())
}

func NewInvalidLeadPayloadError(details string) *StandardError {
	return newError(ErrCodeInvalidLeadPayload, false, "Lead payload is invalid", details)
}

// ==========================
// 5. Classification helpers
// ==========================

// CodeOf maps any error produced inside the service to its ErrorCode.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &se):
		return se.Code
	case errors.Is(err, ErrSessionCorrupted):
		return ErrCodeSessionCorrupted
	case errors.Is(err, ErrDuplicateLead):
		return ErrCodeDuplicateLead
	case errors.Is(err, ErrResourceNotFound):
		return ErrCodeResourceNotFound
	case errors.Is(err, ErrMalformedExtraction):
		return ErrCodeMalformedExtraction
	case errors.Is(err, ErrExternalServiceUnavailable):
		return ErrCodeExternalServiceUnavailable
	default:
		return "INTERNAL_ERROR"
	}
}

// ==========================
// 6. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeCRMSyncFailed,
		ErrCodeExternalServiceUnavailable,
		ErrCodeLLMRequestError:
		return 3

	case ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "SESSION"):
		return "SESSION"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "CRM"):
		return "CRM"
	case strings.Contains(codeStr, "LLM") || strings.Contains(codeStr, "EXTRACTION"):
		return "AI"
	case strings.Contains(codeStr, "LEAD") || strings.Contains(codeStr, "RESOURCE"):
		return "LEAD"
	case strings.Contains(codeStr, "EXTERNAL"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
