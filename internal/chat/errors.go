package chat

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

// FailureKind groups Gemini call failures by what the user can do about them.
type FailureKind int

const (
	// FailureUnknown is anything not recognised below.
	FailureUnknown FailureKind = iota
	// FailureInvalidKey means the API key is missing, malformed or revoked.
	FailureInvalidKey
	// FailureQuota means the key is rate limited or out of quota.
	FailureQuota
	// FailureUnavailable covers network errors and 5xx responses.
	FailureUnavailable
	// FailureTimeout means the call ran past its deadline.
	FailureTimeout
	// FailureRejected means the service refused this particular request.
	FailureRejected
)

// String returns the metric label for the kind.
func (k FailureKind) String() string {
	switch k {
	case FailureInvalidKey:
		return "invalid_key"
	case FailureQuota:
		return "quota"
	case FailureUnavailable:
		return "unavailable"
	case FailureTimeout:
		return "timeout"
	case FailureRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Failure is a classified Gemini error. Error returns text meant for the
// person who triggered the call; the raw SDK error stays reachable through
// Unwrap for logs.
type Failure struct {
	Kind FailureKind
	// Code is the HTTP status reported by the API, 0 if there was none.
	Code int
	// Detail is the service message, shown for rejected and unknown failures.
	Detail string
	Err    error
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureInvalidKey:
		return "Gemini rejected the API key. Check GEMINI_API_KEY and try again."
	case FailureQuota:
		return "Gemini API quota exceeded. Wait a moment and try again."
	case FailureUnavailable:
		return "Could not reach the Gemini API. Check your connection and try again."
	case FailureTimeout:
		return "The enhancement timed out. Try a smaller image or a longer timeout."
	case FailureRejected:
		return "Gemini could not process this image: " + f.Detail
	}
	if f.Detail != "" {
		return "Enhancement failed: " + f.Detail
	}
	return "Enhancement failed."
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// ClassifyError maps an error from the genai SDK onto a Failure. A nil error
// yields nil and an existing Failure is returned unchanged.
func ClassifyError(err error) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailureUnknown, Detail: "request canceled", Err: err}
	}

	if apiErr, ok := asAPIError(err); ok {
		return classifyStatus(apiErr.Code, apiErr.Message, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "api key not valid", "invalid api key", "api_key_invalid", "permission denied"):
		return &Failure{Kind: FailureInvalidKey, Err: err}
	case containsAny(msg, "quota", "resource exhausted", "rate limit"):
		return &Failure{Kind: FailureQuota, Err: err}
	case containsAny(msg, "deadline exceeded", "timeout"):
		return &Failure{Kind: FailureTimeout, Err: err}
	case containsAny(msg, "connection", "network", "dial", "no such host", "unreachable"):
		return &Failure{Kind: FailureUnavailable, Err: err}
	}
	return &Failure{Kind: FailureUnknown, Detail: err.Error(), Err: err}
}

// asAPIError finds a genai.APIError in the chain, by value or by pointer.
func asAPIError(err error) (genai.APIError, bool) {
	var val genai.APIError
	if errors.As(err, &val) {
		return val, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func classifyStatus(code int, message string, err error) *Failure {
	f := &Failure{Code: code, Detail: message, Err: err}
	switch {
	case code == 400 && containsAny(strings.ToLower(message), "api key", "api_key"):
		f.Kind = FailureInvalidKey
	case code == 400 || code == 413 || code == 422:
		f.Kind = FailureRejected
	case code == 401 || code == 403:
		f.Kind = FailureInvalidKey
	case code == 429:
		f.Kind = FailureQuota
	case code == 408 || code == 504:
		f.Kind = FailureTimeout
	case code >= 500:
		f.Kind = FailureUnavailable
	default:
		f.Kind = FailureUnknown
	}
	return f
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
