package chat

import "os"

// Gemini Model IDs
//
// | Model Name                  | API Model ID                | Use Case                      |
// |-----------------------------|-----------------------------|-------------------------------|
// | Gemini 2.5 Flash Image      | gemini-2.5-flash-image      | Fast image editing (default)  |
// | Gemini 3 Pro Image          | gemini-3-pro-image-preview  | Highest quality image edits   |
// | Gemini 3 Flash (Preview)    | gemini-3-flash-preview      | Key validation, text calls    |
const (
	// ModelGemini25FlashImage is fast, low-cost image editing.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"

	// ModelGemini3ProImage is for advanced image generation/edit.
	ModelGemini3ProImage = "gemini-3-pro-image-preview"

	// ModelGemini3FlashPreview is the cheap text model used to validate API keys.
	ModelGemini3FlashPreview = "gemini-3-flash-preview"
)

// DefaultImageModelName is the image model used for enhancement.
// Can be overridden via GEMINI_IMAGE_MODEL or the --model flag.
const DefaultImageModelName = ModelGemini25FlashImage

// GetImageModelName returns the image model to use, resolved from:
// 1. GEMINI_IMAGE_MODEL environment variable (if set)
// 2. Default: gemini-2.5-flash-image
func GetImageModelName() string {
	if env := os.Getenv("GEMINI_IMAGE_MODEL"); env != "" {
		return env
	}
	return DefaultImageModelName
}
