package polar

import (
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Error kinds carried as go-errors text codes. Callers branch on
// ErrorKind(err) or the Is* predicates instead of concrete error types.
const (
	ErrorKindConfiguration  = "POLAR_CONFIGURATION"
	ErrorKindValidation     = "POLAR_VALIDATION"
	ErrorKindAuthentication = "POLAR_AUTHENTICATION"
	ErrorKindAuthorization  = "POLAR_AUTHORIZATION"
	ErrorKindNotFound       = "POLAR_NOT_FOUND"
	ErrorKindRateLimit      = "POLAR_RATE_LIMIT"
	ErrorKindServer         = "POLAR_SERVER"
	ErrorKindAPI            = "POLAR_API"
)

func configurationError(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorKindConfiguration)
}

func validationError(message string, status int, body map[string]any) error {
	return apiError(ErrorKindValidation, goerrors.CategoryValidation, message, status, body)
}

func apiError(kind string, category goerrors.Category, message string, status int, body map[string]any) error {
	err := goerrors.New(message, category).WithTextCode(kind)
	if status > 0 {
		err.WithCode(status)
	}
	metadata := map[string]any{}
	if status > 0 {
		metadata["status"] = status
	}
	if body != nil {
		metadata["response_body"] = body
	}
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func timeoutExhaustedError(retries int) error {
	return goerrors.New(
		fmt.Sprintf("Request timeout after %d retries", retries),
		goerrors.CategoryExternal,
	).WithTextCode(ErrorKindServer)
}

func wrapTransportError(source error, message string) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorKindAPI)
}

// statusError maps an HTTP error status to the typed taxonomy. The message
// is taken from the parsed body's "error" field when present, otherwise a
// status-specific default is used.
func statusError(status int, body map[string]any) error {
	switch {
	case status == http.StatusBadRequest:
		return validationError(bodyMessage(body, "Bad Request"), status, body)
	case status == http.StatusUnauthorized:
		return apiError(ErrorKindAuthentication, goerrors.CategoryAuth,
			"Invalid or missing authentication credentials", status, body)
	case status == http.StatusForbidden:
		return apiError(ErrorKindAuthorization, goerrors.CategoryAuthz,
			"Insufficient permissions", status, body)
	case status == http.StatusNotFound:
		return apiError(ErrorKindNotFound, goerrors.CategoryNotFound,
			"Resource not found", status, body)
	case status == http.StatusTooManyRequests:
		return apiError(ErrorKindRateLimit, goerrors.CategoryRateLimit,
			"Rate limit exceeded", status, body)
	case status >= 500 && status <= 599:
		return apiError(ErrorKindServer, goerrors.CategoryExternal,
			"Server error", status, body)
	default:
		return apiError(ErrorKindAPI, goerrors.CategoryExternal,
			fmt.Sprintf("Unexpected response code: %d", status), status, body)
	}
}

func bodyMessage(body map[string]any, fallback string) string {
	if body != nil {
		if msg, ok := body["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return fallback
}

// ErrorKind returns the POLAR_* text code of err, or an empty string when
// err does not originate from this package.
func ErrorKind(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}

// ErrorStatus returns the HTTP status carried by err, or zero.
func ErrorStatus(err error) int {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Code
	}
	return 0
}

// ErrorBody returns the parsed response body carried by err, or nil.
func ErrorBody(err error) map[string]any {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.Metadata != nil {
		if body, ok := rich.Metadata["response_body"].(map[string]any); ok {
			return body
		}
	}
	return nil
}

func IsConfiguration(err error) bool  { return ErrorKind(err) == ErrorKindConfiguration }
func IsValidation(err error) bool     { return ErrorKind(err) == ErrorKindValidation }
func IsAuthentication(err error) bool { return ErrorKind(err) == ErrorKindAuthentication }
func IsAuthorization(err error) bool  { return ErrorKind(err) == ErrorKindAuthorization }
func IsNotFound(err error) bool       { return ErrorKind(err) == ErrorKindNotFound }
func IsRateLimit(err error) bool      { return ErrorKind(err) == ErrorKindRateLimit }
func IsServer(err error) bool         { return ErrorKind(err) == ErrorKindServer }
