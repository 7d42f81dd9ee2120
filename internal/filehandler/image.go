package filehandler

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/evanoberholster/imagemeta"
	"github.com/rs/zerolog/log"
)

// ImageMetadata is the EXIF subset shown next to a selected image. For
// satellite and aerial captures the GPS block locates the scene.
type ImageMetadata struct {
	Latitude  float64
	Longitude float64
	HasGPS    bool

	DateTaken time.Time
	HasDate   bool

	CameraMake  string
	CameraModel string

	// RawFields holds the extracted values as strings, for debugging.
	RawFields map[string]string
}

// ExtractImageMetadata decodes EXIF from in-memory image bytes. JPEG, HEIC,
// TIFF and WebP containers are detected from their headers; formats without
// EXIF return an error.
func ExtractImageMetadata(data []byte) (*ImageMetadata, error) {
	exifData, err := imagemeta.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode EXIF metadata: %w", err)
	}

	metadata := &ImageMetadata{
		RawFields: make(map[string]string),
	}

	gps := exifData.GPS
	if gps.Latitude() != 0 || gps.Longitude() != 0 {
		metadata.Latitude = gps.Latitude()
		metadata.Longitude = gps.Longitude()
		metadata.HasGPS = true
		metadata.RawFields["GPSLatitude"] = fmt.Sprintf("%f", gps.Latitude())
		metadata.RawFields["GPSLongitude"] = fmt.Sprintf("%f", gps.Longitude())
	}

	// DateTimeOriginal > CreateDate > ModifyDate
	switch {
	case !exifData.DateTimeOriginal().IsZero():
		metadata.DateTaken = exifData.DateTimeOriginal()
		metadata.RawFields["DateTimeOriginal"] = metadata.DateTaken.String()
	case !exifData.CreateDate().IsZero():
		metadata.DateTaken = exifData.CreateDate()
		metadata.RawFields["CreateDate"] = metadata.DateTaken.String()
	case !exifData.ModifyDate().IsZero():
		metadata.DateTaken = exifData.ModifyDate()
		metadata.RawFields["ModifyDate"] = metadata.DateTaken.String()
	}
	metadata.HasDate = !metadata.DateTaken.IsZero()

	metadata.CameraMake = strings.TrimSpace(exifData.Make)
	metadata.CameraModel = strings.TrimSpace(exifData.Model)
	if metadata.CameraMake != "" {
		metadata.RawFields["Make"] = metadata.CameraMake
	}
	if metadata.CameraModel != "" {
		metadata.RawFields["Model"] = metadata.CameraModel
	}

	log.Debug().
		Bool("has_gps", metadata.HasGPS).
		Bool("has_date", metadata.HasDate).
		Msg("Image metadata extraction complete")

	return metadata, nil
}

// GetGPS returns the GPS coordinates (0,0 if not available).
func (m *ImageMetadata) GetGPS() (latitude, longitude float64) {
	return m.Latitude, m.Longitude
}

// FormatMetadataContext renders the metadata as a short text block.
func (m *ImageMetadata) FormatMetadataContext() string {
	var sb strings.Builder

	sb.WriteString("## IMAGE METADATA\n\n")

	if m.HasGPS {
		sb.WriteString("**GPS Coordinates:**\n")
		sb.WriteString(fmt.Sprintf("- Latitude: %.6f\n", m.Latitude))
		sb.WriteString(fmt.Sprintf("- Longitude: %.6f\n", m.Longitude))
		sb.WriteString(fmt.Sprintf("- DMS: %s\n", CoordinatesToDMS(m.Latitude, m.Longitude)))
		sb.WriteString(fmt.Sprintf("- Google Maps: https://www.google.com/maps?q=%.6f,%.6f\n\n", m.Latitude, m.Longitude))
	} else {
		sb.WriteString("**GPS Coordinates:** Not available in image metadata\n\n")
	}

	if m.HasDate {
		sb.WriteString("**Captured:**\n")
		sb.WriteString(fmt.Sprintf("- Date: %s\n", m.DateTaken.Format("Monday, January 2, 2006")))
		sb.WriteString(fmt.Sprintf("- Time: %s\n\n", m.DateTaken.Format("15:04 MST")))
	} else {
		sb.WriteString("**Captured:** Not available in image metadata\n\n")
	}

	if m.CameraMake != "" || m.CameraModel != "" {
		sb.WriteString(fmt.Sprintf("**Sensor:** %s\n\n", strings.TrimSpace(m.CameraMake+" "+m.CameraModel)))
	}

	return sb.String()
}
