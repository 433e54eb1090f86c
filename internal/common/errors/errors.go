// internal/common/errors/errors.go

// Package errors provides standardized error handling for marketplace operations.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Guard rejections: user-remediable, never retried.
	ErrCodeOpportunityNotFound   ErrorCode = "OPPORTUNITY_NOT_FOUND"
	ErrCodeOpportunityClosed     ErrorCode = "OPPORTUNITY_CLOSED"
	ErrCodeOpportunityNotActive  ErrorCode = "OPPORTUNITY_NOT_ACTIVE"
	ErrCodeDuplicateApplication  ErrorCode = "DUPLICATE_APPLICATION"
	ErrCodeQuotaExceeded         ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeApplicationNotFound   ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeApplicationValidation ErrorCode = "APPLICATION_VALIDATION_FAILED"

	// Infrastructure failures.
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout            ErrorCode = "SEARCH_TIMEOUT"

	// Side-channel failures: logged, never propagated to callers.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
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

// Is reports code equality so errors.Is works against another StandardError.
func (e *StandardError) Is(target error) bool {
	var se *StandardError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" if err is not a StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ==========================
// 2. Error Constructors
// ==========================

// NewOpportunityNotFoundError creates a non-retryable lookup error.
func NewOpportunityNotFoundError(opportunityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOpportunityNotFound,
		Message:   "Opportunity not found",
		Details:   fmt.Sprintf("opportunityId: %s", opportunityID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOpportunityClosedError rejects applications against a closed opportunity.
func NewOpportunityClosedError(opportunityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOpportunityClosed,
		Message:   "This opportunity is closed and no longer accepts applications",
		Details:   fmt.Sprintf("opportunityId: %s", opportunityID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOpportunityNotActiveError rejects applications against drafts and paused postings.
func NewOpportunityNotActiveError(opportunityID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOpportunityNotActive,
		Message:   "This opportunity is not open for applications",
		Details:   fmt.Sprintf("opportunityId: %s, status: %s", opportunityID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateApplicationError creates a non-retryable duplicate application error.
func NewDuplicateApplicationError(opportunityID, talentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateApplication,
		Message:   "You have already applied to this opportunity",
		Details:   fmt.Sprintf("opportunityId: %s, talentId: %s", opportunityID, talentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuotaExceededError rejects applications over the monthly role-tier limit.
func NewQuotaExceededError(current, limit int) *StandardError {
	return &StandardError{
		Code:      ErrCodeQuotaExceeded,
		Message:   fmt.Sprintf("Monthly application limit reached (%d of %d used)", current, limit),
		Details:   fmt.Sprintf("current: %d, limit: %d", current, limit),
		Retryable: false,
		Metadata:  map[string]interface{}{"current": current, "limit": limit},
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewApplicationValidationError creates a non-retryable payload validation error.
func NewApplicationValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationValidation,
		Message:   "Application data validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Talent search query error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Talent search query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// IsGuardRejection reports whether the error is a user-remediable guard rejection
// rather than an infrastructure failure.
func IsGuardRejection(err error) bool {
	switch CodeOf(err) {
	case ErrCodeOpportunityNotFound,
		ErrCodeOpportunityClosed,
		ErrCodeOpportunityNotActive,
		ErrCodeDuplicateApplication,
		ErrCodeQuotaExceeded,
		ErrCodeApplicationNotFound,
		ErrCodeApplicationValidation:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "OPPORTUNITY") || strings.Contains(codeStr, "APPLICATION") || strings.Contains(codeStr, "QUOTA"):
		return "MARKETPLACE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
