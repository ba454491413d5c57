package generative

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"
)

// ErrUnavailable matches (via errors.Is) every error meaning the service
// could not be used right now: quota, outage, open circuit, missing key.
var ErrUnavailable = errors.New("generative service unavailable")

// GenerativeServiceError describes a failed call to an external generator.
type GenerativeServiceError struct {
	Provider    string
	StatusCode  int // 0 when no HTTP response was received
	Unavailable bool
	RateLimited bool
	Err         error
}

func (e *GenerativeServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *GenerativeServiceError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrUnavailable) match unavailable service errors.
func (e *GenerativeServiceError) Is(target error) bool {
	return target == ErrUnavailable && e.Unavailable
}

// IsRateLimited reports whether err is a quota / rate-limit rejection.
func IsRateLimited(err error) bool {
	var gerr *GenerativeServiceError
	return errors.As(err, &gerr) && gerr.RateLimited
}

func newServiceError(provider string, status int, err error) *GenerativeServiceError {
	return &GenerativeServiceError{
		Provider:    provider,
		StatusCode:  status,
		Unavailable: unavailableStatus(status),
		RateLimited: status == http.StatusTooManyRequests,
		Err:         err,
	}
}

// unavailableStatus is true for transport failures (no status), auth and
// quota rejections, timeouts and server errors. Other client errors mean the
// request itself was bad.
func unavailableStatus(status int) bool {
	switch {
	case status == 0:
		return true
	case status == http.StatusUnauthorized, status == http.StatusForbidden,
		status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	status := 0
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return newServiceError(providerOpenAI, status, err)
}

func classifyGemini(err error) error {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	status := 0
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code
	case errors.As(err, &apiErrPtr):
		status = apiErrPtr.Code
	}
	return newServiceError(providerGemini, status, err)
}
