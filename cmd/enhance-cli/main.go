package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/satellite-super-resolution/internal/chat"
	"github.com/fpang/satellite-super-resolution/internal/cli"
	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/fpang/satellite-super-resolution/internal/logging"
	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	inputFlag        string
	outputFlag       string
	pickFlag         bool
	modelFlag        string
	timeoutFlag      time.Duration
	maxDimensionFlag int
)

var rootCmd = &cobra.Command{
	Use:   "enhance-cli",
	Short: "Enhance the resolution of a satellite image with Gemini",
	Long: `Enhance CLI sends one satellite or aerial image to a Gemini image model
and writes the enhanced result next to the original (or to --output).

If no input is given, you are prompted for a path. Use --pick to choose the
file from a native dialog instead.

Examples:
  enhance-cli --input ./scene.jpg
  enhance-cli -i ./scene.png -o ./scene-4x.jpg
  enhance-cli --pick --model gemini-3-pro-image-preview`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Image to enhance")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Where to write the enhanced image (default: <input>-enhanced.jpg)")
	rootCmd.Flags().BoolVar(&pickFlag, "pick", false, "Choose the input with a native file dialog")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Enhancement timeout (0 disables)")
	rootCmd.Flags().IntVar(&maxDimensionFlag, "max-dimension", filehandler.DefaultMaxDimension, "Downscale inputs whose longest side exceeds this (0 disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	metrics.SetOutput(os.Stderr)
	metrics.SetService("enhance-cli")

	inputPath, err := resolveInput()
	if err != nil {
		if errors.Is(err, cli.ErrPickCanceled) {
			fmt.Println("No image selected.")
			return
		}
		log.Fatal().Err(err).Msg("Invalid input")
	}

	img, err := filehandler.LoadImage(inputPath, maxDimensionFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load image")
	}

	outputPath := outputFlag
	if outputPath == "" {
		outputPath = filehandler.OutputPathFor(inputPath)
	}

	ctx, client := cli.InitGeminiClient()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	enhancer := chat.NewGeminiImageClient(client, modelFlag)
	ctrl := workflow.New(enhancer, workflow.WithTimeout(timeoutFlag))

	if err := run(ctx, ctrl, img, outputPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "\nEnhancement failed: %v\n", err)
		os.Exit(1)
	}
}

// resolveInput returns the image path from --input, the file dialog, or stdin.
func resolveInput() (string, error) {
	path := inputFlag
	switch {
	case path != "":
	case pickFlag:
		picked, err := cli.PickImageFile()
		if err != nil {
			return "", err
		}
		path = picked
	default:
		path = cli.PromptForImagePath()
		if path == "" {
			return "", errors.New("no image path given")
		}
	}
	return cli.ValidateAndResolveImagePath(path)
}
