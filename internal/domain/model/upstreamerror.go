package model

import "time"

// UpstreamErrorType classifies a failed upstream model request.
type UpstreamErrorType string

const (
	UpstreamErrorAuthentication UpstreamErrorType = "authentication"
	UpstreamErrorAuthorization  UpstreamErrorType = "authorization"
	UpstreamErrorRateLimit      UpstreamErrorType = "rate_limit"
	UpstreamErrorServer         UpstreamErrorType = "server_error"
)

// UpstreamError tells a caller how to react to a failed upstream response.
type UpstreamError struct {
	Type       UpstreamErrorType
	Message    string
	StatusCode int
	Retryable  bool
	Cooldown   time.Duration // Zero when retrying may happen at once.
}

// ClassifyUpstreamError maps an upstream HTTP status to an UpstreamError.
// It returns false for statuses that are not credential or server problems,
// such as 400 validation errors.
func ClassifyUpstreamError(status int, body string) (UpstreamError, bool) {
	switch {
	case status == 401:
		return UpstreamError{
			Type:       UpstreamErrorAuthentication,
			Message:    "token expired or invalid",
			StatusCode: status,
			Retryable:  true,
		}, true
	case status == 403:
		return UpstreamError{
			Type:       UpstreamErrorAuthorization,
			Message:    "insufficient permissions",
			StatusCode: status,
		}, true
	case status == 429:
		return UpstreamError{
			Type:       UpstreamErrorRateLimit,
			Message:    "too many requests",
			StatusCode: status,
			Retryable:  true,
			Cooldown:   time.Minute,
		}, true
	case status >= 500 && status <= 599:
		return UpstreamError{
			Type:       UpstreamErrorServer,
			Message:    "server error: " + body,
			StatusCode: status,
			Retryable:  true,
			Cooldown:   10 * time.Second,
		}, true
	default:
		return UpstreamError{}, false
	}
}
