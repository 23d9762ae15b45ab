package coach

import (
	"context"
	"errors"
	"net/http"

	"github.com/openai/openai-go/v3"
)

// ErrorType classifies a failed advice request.
type ErrorType string

const (
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeInvalidRequest ErrorType = "invalid_request"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypePermission     ErrorType = "permission"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeServer         ErrorType = "server_error"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeEmpty          ErrorType = "empty_response"
	ErrorTypeUnknown        ErrorType = "unknown"
)

var errEmptyCompletion = errors.New("completion has no content")

// classify maps an OpenAI client error to an ErrorType and reports whether the request is worth retrying later.
func classify(err error) (ErrorType, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTypeTimeout, true
	}
	if errors.Is(err, errEmptyCompletion) {
		return ErrorTypeEmpty, true
	}

	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return ErrorTypeUnknown, false
	}

	switch {
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit, true
	case apiErr.StatusCode == http.StatusUnauthorized:
		return ErrorTypeAuthentication, false
	case apiErr.StatusCode == http.StatusForbidden:
		return ErrorTypePermission, false
	case apiErr.StatusCode == http.StatusNotFound:
		return ErrorTypeNotFound, true
	case apiErr.StatusCode == http.StatusRequestTimeout:
		return ErrorTypeTimeout, true
	case apiErr.StatusCode >= http.StatusInternalServerError:
		return ErrorTypeServer, true
	case apiErr.StatusCode >= http.StatusBadRequest:
		return ErrorTypeInvalidRequest, false
	default:
		return ErrorTypeUnknown, false
	}
}
