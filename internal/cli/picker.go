package cli

import (
	"errors"

	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/ncruces/zenity"
)

// ErrPickCanceled is returned when the user closes the file dialog.
var ErrPickCanceled = errors.New("file selection canceled")

// PickImageFile opens the native file dialog filtered to supported images.
func PickImageFile() (string, error) {
	path, err := zenity.SelectFile(
		zenity.Title("Select a satellite image"),
		zenity.FileFilters{
			{Name: "Images", Patterns: filehandler.FilePatterns()},
		},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			return "", ErrPickCanceled
		}
		return "", err
	}
	return path, nil
}
