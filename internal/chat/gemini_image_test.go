package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"google.golang.org/genai"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newTestImageClient(t *testing.T, handler http.HandlerFunc) *GeminiImageClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := newClient(context.Background(), "test-key", srv.URL)
	if err != nil {
		t.Fatalf("newClient() error = %v", err)
	}
	return NewGeminiImageClient(client, ModelGemini25FlashImage)
}

func TestEnhanceReturnsImagePayload(t *testing.T) {
	enhanced := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}

	var gotBody map[string]interface{}
	var gotPath string
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []interface{}{
				map[string]interface{}{
					"content": map[string]interface{}{
						"role": "model",
						"parts": []interface{}{
							map[string]interface{}{"text": "Sharpened roads."},
							map[string]interface{}{
								"inlineData": map[string]interface{}{
									"mimeType": "image/jpeg",
									"data":     base64.StdEncoding.EncodeToString(enhanced),
								},
							},
						},
					},
				},
			},
		})
	})

	payload := base64.StdEncoding.EncodeToString(pngHeader)
	got, err := c.Enhance(context.Background(), payload)
	if err != nil {
		t.Fatalf("Enhance() error = %v", err)
	}
	if want := base64.StdEncoding.EncodeToString(enhanced); got != want {
		t.Errorf("Enhance() = %q, want %q", got, want)
	}

	if !strings.Contains(gotPath, ModelGemini25FlashImage) {
		t.Errorf("request path %q does not name the model", gotPath)
	}

	raw, _ := json.Marshal(gotBody)
	body := string(raw)
	if !strings.Contains(body, payload) {
		t.Error("request body does not carry the input payload")
	}
	if !strings.Contains(body, "image/png") {
		t.Error("request body does not carry the sniffed MIME type")
	}
	if !strings.Contains(body, "IMAGE") {
		t.Error("request body does not ask for the IMAGE modality")
	}
}

func TestEnhanceNoImage(t *testing.T) {
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"I cannot edit this image."}]}}]}`)
	})

	_, err := c.Enhance(context.Background(), base64.StdEncoding.EncodeToString(pngHeader))
	if err == nil {
		t.Fatal("expected error when no image is returned")
	}
	if !strings.Contains(err.Error(), "I cannot edit this image.") {
		t.Errorf("error %q should include the model text", err)
	}
}

func TestEnhanceAPIError(t *testing.T) {
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"Image too small","status":"INVALID_ARGUMENT"}}`)
	})

	_, err := c.Enhance(context.Background(), base64.StdEncoding.EncodeToString(pngHeader))
	if err == nil {
		t.Fatal("expected error for API failure")
	}
	if !strings.Contains(err.Error(), "Image too small") {
		t.Errorf("error %q should carry the service message", err)
	}
}

func TestEnhanceInvalidPayload(t *testing.T) {
	c := NewGeminiImageClient(nil, "")
	if _, err := c.Enhance(context.Background(), "not base64!"); err == nil {
		t.Error("expected error for invalid base64 payload")
	}
}

func TestExtractImage(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			nil,
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "first "},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: []byte{1}}},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte{2}}},
				{Text: "second"},
			}}},
		},
	}

	result := extractImage(resp)
	if len(result.ImageData) != 1 || result.ImageData[0] != 1 || result.ImageMIMEType != "image/png" {
		t.Errorf("expected first image part, got %+v", result)
	}
	if result.Text != "first second" {
		t.Errorf("Text = %q", result.Text)
	}

	if empty := extractImage(nil); empty.ImageData != nil {
		t.Error("expected no image from nil response")
	}
}

// heicHeader is an ISO-BMFF ftyp box with the heic major brand, padded to
// the length header scanners read.
var heicHeader = append([]byte{
	0, 0, 0, 0x18, 'f', 't', 'y', 'p', 'h', 'e', 'i', 'c', 0, 0, 0, 0,
	'm', 'i', 'f', '1', 'h', 'e', 'i', 'c',
}, make([]byte, 64)...)

func TestDetectImageMIME(t *testing.T) {
	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, image.NewRGBA(image.Rect(0, 0, 4, 4)), nil); err != nil {
		t.Fatal(err)
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", jpg.Bytes(), "image/jpeg"},
		{"png", pngBuf.Bytes(), "image/png"},
		{"png header only", pngHeader, "image/png"},
		{"heic", heicHeader, "image/heic"},
		{"text falls back to jpeg", []byte("plain text"), "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectImageMIME(tt.data); got != tt.want {
				t.Errorf("detectImageMIME() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnhanceSendsHEICMimeType(t *testing.T) {
	var body string
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":{"code":400,"message":"unsupported","status":"INVALID_ARGUMENT"}}`)
	})

	c.Enhance(context.Background(), base64.StdEncoding.EncodeToString(heicHeader))
	if !strings.Contains(body, `"image/heic"`) {
		t.Errorf("request body does not label the image as image/heic: %.200s", body)
	}
}

func TestEnhanceQuotaErrorIsReadable(t *testing.T) {
	c := newTestImageClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`)
	})

	_, err := c.Enhance(context.Background(), base64.StdEncoding.EncodeToString(pngHeader))
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("Enhance() error = %v, want *Failure", err)
	}
	if failure.Kind != FailureQuota {
		t.Errorf("Kind = %v, want quota", failure.Kind)
	}
	if err.Error() != "Gemini API quota exceeded. Wait a moment and try again." {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestGetImageModelName(t *testing.T) {
	t.Setenv("GEMINI_IMAGE_MODEL", "")
	if got := GetImageModelName(); got != DefaultImageModelName {
		t.Errorf("GetImageModelName() = %q", got)
	}

	t.Setenv("GEMINI_IMAGE_MODEL", ModelGemini3ProImage)
	if got := GetImageModelName(); got != ModelGemini3ProImage {
		t.Errorf("GetImageModelName() = %q", got)
	}

	if c := NewGeminiImageClient(nil, ""); c.Model() != ModelGemini3ProImage {
		t.Errorf("NewGeminiImageClient model = %q", c.Model())
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("abcdef", 3); got != "abc..." {
		t.Errorf("truncateString() = %q", got)
	}
	if got := truncateString("abc", 3); got != "abc" {
		t.Errorf("truncateString() = %q", got)
	}
}
