package auth

import (
	"context"
	"time"

	"github.com/fpang/satellite-super-resolution/internal/chat"
	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// ValidationError reports why an API key cannot be used.
type ValidationError struct {
	Type    ValidationErrorType
	Message string
	Err     error
}

// ValidationErrorType categorizes validation failures.
type ValidationErrorType int

const (
	ErrTypeNoKey ValidationErrorType = iota
	ErrTypeInvalidKey
	ErrTypeNetworkError
	ErrTypeQuotaExceeded
	ErrTypeUnknown
)

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// String returns the metric label for a validation failure type.
func (t ValidationErrorType) String() string {
	switch t {
	case ErrTypeNoKey:
		return "no_key"
	case ErrTypeInvalidKey:
		return "invalid"
	case ErrTypeNetworkError:
		return "network_error"
	case ErrTypeQuotaExceeded:
		return "quota"
	default:
		return "unknown"
	}
}

// ValidateAPIKey sends a one-word prompt to the cheap text model so a bad key
// is reported at startup rather than on the first enhancement. Failures are
// classified the same way enhancement failures are.
func ValidateAPIKey(ctx context.Context, client *genai.Client) error {
	start := time.Now()
	resp, err := client.Models.GenerateContent(ctx, chat.ModelGemini3FlashPreview, genai.Text("hi"), nil)
	elapsed := time.Since(start)

	if err != nil {
		failure := chat.ClassifyError(err)
		valErr := &ValidationError{
			Type:    validationType(failure.Kind),
			Message: failure.Error(),
			Err:     err,
		}
		log.Error().Err(err).Str("kind", failure.Kind.String()).Msg("API key validation failed")
		recordValidation(valErr.Type.String(), elapsed)
		return valErr
	}

	if resp == nil || len(resp.Candidates) == 0 {
		recordValidation("empty_response", elapsed)
		return &ValidationError{Type: ErrTypeUnknown, Message: "API returned empty response"}
	}

	recordValidation("success", elapsed)
	log.Info().Dur("duration", elapsed).Msg("API key validated")
	return nil
}

func validationType(kind chat.FailureKind) ValidationErrorType {
	switch kind {
	case chat.FailureInvalidKey:
		return ErrTypeInvalidKey
	case chat.FailureQuota:
		return ErrTypeQuotaExceeded
	case chat.FailureUnavailable, chat.FailureTimeout:
		return ErrTypeNetworkError
	default:
		return ErrTypeUnknown
	}
}

func recordValidation(result string, elapsed time.Duration) {
	metrics.New(metrics.Namespace).
		Dimension("Result", result).
		Metric("ApiKeyValidationMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Count("ApiKeyValidationResult").
		Flush()
}
