package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/fpang/satellite-super-resolution/internal/auth"
	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/rs/zerolog/log"
)

// ValidateAndResolveImagePath checks that the path is an existing file with a
// supported image extension, then returns the absolute path.
func ValidateAndResolveImagePath(imagePath string) (string, error) {
	info, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New("image not found: " + imagePath)
		}
		return "", err
	}
	if info.IsDir() {
		return "", errors.New("path is a directory: " + imagePath)
	}
	if !filehandler.IsImage(filepath.Ext(imagePath)) {
		return "", errors.New("unsupported image type: " + strings.ToLower(filepath.Ext(imagePath)))
	}

	if absPath, err := filepath.Abs(imagePath); err == nil {
		imagePath = absPath
	}
	return imagePath, nil
}

// HandleValidationError processes auth.ValidationError and exits with appropriate messaging.
func HandleValidationError(err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			log.Fatal().Err(validationErr.Err).Msg("No API key configured. Set GEMINI_API_KEY or store it in ~/.satellite-enhance/credentials.gpg")
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	os.Exit(1)
}
