package llm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sriharsha8991/adv-attack-simulation/internal/types"
)

// LLM error codes follow the agent error pattern.
const (
	// Provider errors
	ErrProviderNotFound     types.ErrorCode = "LLM_PROVIDER_NOT_FOUND"
	ErrProviderInitFailed   types.ErrorCode = "LLM_PROVIDER_INIT_FAILED"
	ErrProviderUnavailable  types.ErrorCode = "LLM_PROVIDER_UNAVAILABLE"
	ErrProviderUnauthorized types.ErrorCode = "LLM_PROVIDER_UNAUTHORIZED"
	ErrProviderRateLimited  types.ErrorCode = "LLM_PROVIDER_RATE_LIMITED"

	// Request errors
	ErrInvalidRequest types.ErrorCode = "LLM_INVALID_REQUEST"

	// Tool errors
	ErrToolNotFound        types.ErrorCode = "LLM_TOOL_NOT_FOUND"
	ErrToolExecutionFailed types.ErrorCode = "LLM_TOOL_EXECUTION_FAILED"

	// Completion errors
	ErrCompletionFailed       types.ErrorCode = "LLM_COMPLETION_FAILED"
	ErrSchemaValidationFailed types.ErrorCode = "LLM_SCHEMA_VALIDATION_FAILED"
	ErrTimeoutExceeded        types.ErrorCode = "LLM_TIMEOUT_EXCEEDED"
	ErrContextCanceled        types.ErrorCode = "LLM_CONTEXT_CANCELED"

	// Network errors
	ErrNetworkFailed types.ErrorCode = "LLM_NETWORK_FAILED"
)

// IsRetryable determines if an error is transient and may succeed on retry.
// Retryability is a structured property of the translated error; callers
// never inspect message text.
func IsRetryable(err error) bool {
	var agentErr *types.AgentError
	if !errors.As(err, &agentErr) {
		return false
	}

	if agentErr.Retryable {
		return true
	}

	switch agentErr.Code {
	case ErrNetworkFailed, ErrProviderRateLimited, ErrProviderUnavailable, ErrTimeoutExceeded:
		return true

	// Context cancellation is user-initiated; auth errors won't fix themselves.
	case ErrContextCanceled, ErrProviderUnauthorized:
		return false

	default:
		return false
	}
}

// NewAuthError creates a non-retryable authentication error.
func NewAuthError(provider string, cause error) *types.AgentError {
	return &types.AgentError{
		Code:    ErrProviderUnauthorized,
		Message: fmt.Sprintf("provider %q authentication failed", provider),
		Cause:   cause,
	}
}

// NewRateLimitError creates a retryable error for rate limiting.
func NewRateLimitError(provider string) *types.AgentError {
	return &types.AgentError{
		Code:      ErrProviderRateLimited,
		Message:   "rate limit exceeded for provider: " + provider,
		Retryable: true,
	}
}

// NewTimeoutError creates a retryable error for timeout failures.
func NewTimeoutError(message string) *types.AgentError {
	return &types.AgentError{
		Code:      ErrTimeoutExceeded,
		Message:   message,
		Retryable: true,
	}
}

// NewNetworkError creates a retryable error for network failures.
func NewNetworkError(message string, cause error) *types.AgentError {
	return &types.AgentError{
		Code:      ErrNetworkFailed,
		Message:   message,
		Retryable: true,
		Cause:     cause,
	}
}

// NewProviderUnavailableError creates a retryable error for a provider that
// is temporarily failing.
func NewProviderUnavailableError(provider string, cause error) *types.AgentError {
	return &types.AgentError{
		Code:      ErrProviderUnavailable,
		Message:   "provider temporarily unavailable: " + provider,
		Retryable: true,
		Cause:     cause,
	}
}

// TranslateError maps provider failures onto coded errors once, at the
// langchaingo boundary. Already-translated errors pass through unchanged.
func TranslateError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var agentErr *types.AgentError
	if errors.As(err, &agentErr) {
		return err
	}

	lowerMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerMsg, "unauthorized") || strings.Contains(lowerMsg, "authentication") ||
		strings.Contains(lowerMsg, "api key") || strings.Contains(lowerMsg, "401") || strings.Contains(lowerMsg, "403"):
		return NewAuthError(provider, err)
	case strings.Contains(lowerMsg, "rate limit") || strings.Contains(lowerMsg, "too many requests") ||
		strings.Contains(lowerMsg, "429"):
		return NewRateLimitError(provider)
	case strings.Contains(lowerMsg, "timeout") || strings.Contains(lowerMsg, "deadline"):
		return NewTimeoutError(err.Error())
	case strings.Contains(lowerMsg, "network") || strings.Contains(lowerMsg, "connection"):
		return NewNetworkError(err.Error(), err)
	case strings.Contains(lowerMsg, "500") || strings.Contains(lowerMsg, "502") ||
		strings.Contains(lowerMsg, "503") || strings.Contains(lowerMsg, "504"):
		return NewProviderUnavailableError(provider, err)
	default:
		return types.WrapError(ErrCompletionFailed, "provider "+provider+" request failed", err)
	}
}
