// Package dataurl handles the encoded image values passed between the uploader,
// the workflow controller, and the enhancement capability.
//
// An encoded image value is a data URI of the form "data:<mime>;base64,<payload>".
// The enhancement service only ever sees the payload; the descriptor is stripped
// before the call and a JPEG descriptor is attached to whatever comes back.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// JPEGPrefix is the descriptor attached to every enhanced payload.
const JPEGPrefix = "data:image/jpeg;base64,"

// ErrMalformed is returned when a value is not a base64 data URI.
var ErrMalformed = errors.New("malformed data URI")

// Payload returns the portion of the encoded value after the first comma.
// A value with no comma has no payload.
func Payload(uri string) string {
	_, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return ""
	}
	return payload
}

// JPEG wraps a raw base64 payload returned by the service as a displayable image.
func JPEG(payload string) string {
	return JPEGPrefix + payload
}

// Parse splits a data URI into its MIME type and base64 payload.
func Parse(uri string) (mimeType, payload string, err error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return "", "", fmt.Errorf("%w: missing payload separator", ErrMalformed)
	}
	rest, ok := strings.CutPrefix(header, "data:")
	if !ok {
		return "", "", fmt.Errorf("%w: missing data: scheme", ErrMalformed)
	}
	mimeType, ok = strings.CutSuffix(rest, ";base64")
	if !ok {
		return "", "", fmt.Errorf("%w: payload is not base64", ErrMalformed)
	}
	if mimeType == "" {
		return "", "", fmt.Errorf("%w: missing media type", ErrMalformed)
	}
	return mimeType, payload, nil
}

// IsImage reports whether uri is a base64 data URI with an image/* media type.
func IsImage(uri string) bool {
	mimeType, payload, err := Parse(uri)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mimeType, "image/") && payload != ""
}

// Encode builds a data URI from raw bytes.
func Encode(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Decode returns the MIME type and raw bytes of a data URI.
func Decode(uri string) (string, []byte, error) {
	mimeType, payload, err := Parse(uri)
	if err != nil {
		return "", nil, err
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return mimeType, data, nil
}
