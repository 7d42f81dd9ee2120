// Package assets provides embedded prompt text for the enhancement model.
package assets

import (
	_ "embed"
	"strings"
)

// EnhancementSystemPrompt frames the model as a satellite image restoration
// specialist.
//
//go:embed prompts/enhancement-system.txt
var EnhancementSystemPrompt string

//go:embed prompts/enhancement-instruction.txt
var enhancementInstruction string

// EnhancementInstruction returns the per-request instruction sent alongside the
// input image.
func EnhancementInstruction() string {
	return strings.TrimSpace(enhancementInstruction)
}
