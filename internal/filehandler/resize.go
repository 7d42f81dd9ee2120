package filehandler

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// jpegQuality is used when re-encoding a downscaled JPEG.
const jpegQuality = 92

// downscale shrinks JPEG/PNG data whose longest side exceeds maxDimension.
// Other formats, and images already within bounds, are returned unchanged.
func downscale(data []byte, ext string, maxDimension int) ([]byte, bool, error) {
	var img image.Image
	var err error
	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case ".png":
		img, err = png.Decode(bytes.NewReader(data))
	default:
		return data, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()
	if origWidth <= maxDimension && origHeight <= maxDimension {
		return data, false, nil
	}

	newWidth, newHeight := scaledDimensions(origWidth, origHeight, maxDimension)
	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if ext == ".png" {
		err = png.Encode(&buf, resized)
	} else {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode resized image: %w", err)
	}

	log.Debug().
		Int("orig_width", origWidth).
		Int("orig_height", origHeight).
		Int("new_width", newWidth).
		Int("new_height", newHeight).
		Int("output_bytes", buf.Len()).
		Msg("Image downscaled")

	return buf.Bytes(), true, nil
}

// scaledDimensions fits width x height inside a maxDimension square,
// preserving aspect ratio.
func scaledDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newHeight := max(1, int(float64(height)*float64(maxDimension)/float64(width)))
		return maxDimension, newHeight
	}

	newWidth := max(1, int(float64(width)*float64(maxDimension)/float64(height)))
	return newWidth, maxDimension
}
