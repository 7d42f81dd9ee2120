// Package filehandler loads local image files into encoded image values and
// writes enhanced results back to disk.
//
// Images are read fully into memory: the enhancement call sends the whole
// payload inline, so there is nothing to stream. EXIF metadata is extracted
// with evanoberholster/imagemeta and large JPEG/PNG inputs are downscaled with
// golang.org/x/image/draw before encoding.
package filehandler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/satellite-super-resolution/internal/dataurl"
	"github.com/rs/zerolog/log"
)

// DefaultMaxDimension is the longest side sent to the enhancement model.
const DefaultMaxDimension = 2048

// SupportedImageExtensions maps accepted file extensions to MIME types.
var SupportedImageExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heif",
}

// ImageFile is a local image ready to be selected as the workflow input.
type ImageFile struct {
	Path     string
	MIMEType string
	// Size is the on-disk size; len(Data) differs when the image was downscaled.
	Size     int64
	Data     []byte
	Resized  bool
	Metadata *ImageMetadata
}

// DataURL returns the encoded image value for the file contents.
func (f *ImageFile) DataURL() string {
	return dataurl.Encode(f.MIMEType, f.Data)
}

// LoadImage reads an image, extracts its metadata and downscales it so that
// neither side exceeds maxDimension. maxDimension <= 0 disables downscaling.
func LoadImage(filePath string, maxDimension int) (*ImageFile, error) {
	log.Debug().Str("path", filePath).Msg("Loading image file")

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", filePath)
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	ext := strings.ToLower(filepath.Ext(filePath))
	mimeType, err := GetMIMEType(ext)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	img := &ImageFile{
		Path:     filePath,
		MIMEType: mimeType,
		Size:     info.Size(),
		Data:     data,
	}

	meta, err := ExtractImageMetadata(data)
	if err != nil {
		log.Debug().Err(err).Str("path", filePath).Msg("No EXIF metadata, continuing without it")
	} else {
		img.Metadata = meta
	}

	if maxDimension > 0 {
		scaled, resized, err := downscale(data, ext, maxDimension)
		if err != nil {
			return nil, err
		}
		img.Data = scaled
		img.Resized = resized
	}

	log.Info().
		Str("path", filePath).
		Str("mime_type", mimeType).
		Int64("size_bytes", info.Size()).
		Int("payload_bytes", len(img.Data)).
		Bool("resized", img.Resized).
		Msg("Image file loaded")

	return img, nil
}

// SaveDataURL decodes an encoded image value, writes its bytes to path and
// returns how many were written.
func SaveDataURL(path, uri string) (int, error) {
	_, data, err := dataurl.Decode(uri)
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Int("bytes", len(data)).Msg("Image saved")
	return len(data), nil
}

// OutputPathFor derives the default output path for an enhanced image:
// scene.png -> scene-enhanced.jpg in the same directory.
func OutputPathFor(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + "-enhanced.jpg"
}

// GetMIMEType returns the MIME type for a given file extension.
func GetMIMEType(ext string) (string, error) {
	if mimeType, ok := SupportedImageExtensions[strings.ToLower(ext)]; ok {
		return mimeType, nil
	}
	return "", fmt.Errorf("unsupported file extension: %s", ext)
}

// IsImage returns true if the file extension corresponds to a supported image.
func IsImage(ext string) bool {
	_, ok := SupportedImageExtensions[strings.ToLower(ext)]
	return ok
}

// FilePatterns returns glob patterns for the supported extensions, for file
// picker filters.
func FilePatterns() []string {
	patterns := make([]string, 0, len(SupportedImageExtensions))
	for ext := range SupportedImageExtensions {
		patterns = append(patterns, "*"+ext)
	}
	return patterns
}

// CoordinatesToDMS converts decimal degrees to degrees, minutes, seconds format.
func CoordinatesToDMS(lat, lon float64) string {
	latDir := "N"
	if lat < 0 {
		latDir = "S"
		lat = -lat
	}

	lonDir := "E"
	if lon < 0 {
		lonDir = "W"
		lon = -lon
	}

	latDeg := int(lat)
	latMin := int((lat - float64(latDeg)) * 60)
	latSec := ((lat-float64(latDeg))*60 - float64(latMin)) * 60

	lonDeg := int(lon)
	lonMin := int((lon - float64(lonDeg)) * 60)
	lonSec := ((lon-float64(lonDeg))*60 - float64(lonMin)) * 60

	return fmt.Sprintf("%d°%d'%.2f\"%s, %d°%d'%.2f\"%s",
		latDeg, latMin, latSec, latDir,
		lonDeg, lonMin, lonSec, lonDir)
}
