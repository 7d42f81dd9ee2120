package chat

// gemini_image.go sends satellite images to a Gemini image model for
// super-resolution. The model is asked for IMAGE and TEXT modalities; the first
// inline image part in the response is the enhanced image.

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta/imagetype"
	"github.com/fpang/satellite-super-resolution/internal/assets"
	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiImageClient is the enhancement capability backed by a Gemini image model.
// It satisfies workflow.Enhancer.
type GeminiImageClient struct {
	client *genai.Client
	model  string
}

// NewGeminiImageClient wraps client for image enhancement with the given model.
// An empty model resolves through GetImageModelName.
func NewGeminiImageClient(client *genai.Client, model string) *GeminiImageClient {
	if model == "" {
		model = GetImageModelName()
	}
	return &GeminiImageClient{
		client: client,
		model:  model,
	}
}

// Model returns the model id used for enhancement.
func (c *GeminiImageClient) Model() string {
	return c.model
}

// GeminiImageResult holds the decoded output of an image call.
type GeminiImageResult struct {
	// ImageData is the raw bytes of the returned image.
	ImageData []byte
	// ImageMIMEType is the MIME type reported by the model.
	ImageMIMEType string
	// Text is any text the model returned alongside the image.
	Text string
}

// Enhance takes the base64 payload of an image and returns the base64 payload
// of the enhanced image.
func (c *GeminiImageClient) Enhance(ctx context.Context, payload string) (string, error) {
	imageData, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode input image: %w", err)
	}

	result, err := c.EditImage(ctx, imageData, detectImageMIME(imageData), assets.EnhancementInstruction(), assets.EnhancementSystemPrompt)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(result.ImageData), nil
}

// EditImage sends one image with an instruction and returns the edited image.
func (c *GeminiImageClient) EditImage(ctx context.Context, imageData []byte, imageMIMEType, instruction, systemInstruction string) (*GeminiImageResult, error) {
	startTime := time.Now()
	log.Info().
		Str("model", c.model).
		Int("image_bytes", len(imageData)).
		Str("image_mime", imageMIMEType).
		Msg("Sending image to Gemini for enhancement")

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	}
	if systemInstruction != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: imageMIMEType, Data: imageData}},
			{Text: instruction},
		},
	}}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		failure := ClassifyError(err)
		recordCall(c.model, failure.Kind.String(), time.Since(startTime), len(imageData), 0)
		log.Error().Err(err).
			Str("model", c.model).
			Str("kind", failure.Kind.String()).
			Int("code", failure.Code).
			Msg("Gemini image request failed")
		return nil, failure
	}

	result := extractImage(resp)
	if result.ImageData == nil {
		recordCall(c.model, "no_image", time.Since(startTime), len(imageData), 0)
		if result.Text != "" {
			return nil, fmt.Errorf("no image returned in response (text: %s)", truncateString(result.Text, 200))
		}
		return nil, fmt.Errorf("no image returned in response")
	}

	recordCall(c.model, "success", time.Since(startTime), len(imageData), len(result.ImageData))
	log.Info().
		Int("output_bytes", len(result.ImageData)).
		Str("output_mime", result.ImageMIMEType).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini image enhancement complete")

	return result, nil
}

// extractImage collects the first inline image and all text parts.
func extractImage(resp *genai.GenerateContentResponse) *GeminiImageResult {
	result := &GeminiImageResult{}
	if resp == nil {
		return result
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			if part.InlineData != nil && len(part.InlineData.Data) > 0 && result.ImageData == nil {
				result.ImageData = part.InlineData.Data
				result.ImageMIMEType = part.InlineData.MIMEType
			}
			if part.Text != "" {
				text.WriteString(part.Text)
			}
		}
	}
	result.Text = text.String()
	return result
}

// detectImageMIME identifies the image container from its header. HEIC/HEIF
// is not known to http.DetectContentType, so imagetype is consulted first.
// Anything unrecognised is sent as JPEG.
func detectImageMIME(data []byte) string {
	if it, err := imagetype.Scan(bytes.NewReader(data)); err == nil {
		switch it {
		case imagetype.ImageJPEG:
			return "image/jpeg"
		case imagetype.ImagePNG:
			return "image/png"
		case imagetype.ImageWebP:
			return "image/webp"
		case imagetype.ImageHEIF:
			return "image/heic"
		}
	}

	if mime := http.DetectContentType(data); strings.HasPrefix(mime, "image/") {
		return mime
	}
	return "image/jpeg"
}

func recordCall(model, result string, elapsed time.Duration, inBytes, outBytes int) {
	metrics.New(metrics.Namespace).
		Dimension("Model", model).
		Dimension("Result", result).
		Metric("GeminiImageLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
		Metric("GeminiImageInputBytes", float64(inBytes), metrics.UnitBytes).
		Metric("GeminiImageOutputBytes", float64(outBytes), metrics.UnitBytes).
		Flush()
}

// truncateString truncates a string to maxLen, appending "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
