package main

import (
	"context"
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
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var version = "dev"

// CLI flags
var (
	modelFlag        string
	timeoutFlag      time.Duration
	maxDimensionFlag int
)

var rootCmd = &cobra.Command{
	Use:   "enhance-mcp",
	Short: "MCP server exposing satellite image super-resolution tools",
	Long: `Enhance MCP serves the enhancement workflow over the Model Context
Protocol on stdin/stdout. Clients call select_image, then enhance_image, and
can inspect the workflow with get_state.

Stdout carries the protocol; logs and metrics go to stderr.

Examples:
  enhance-mcp
  enhance-mcp --model gemini-3-pro-image-preview --timeout 5m`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Per-enhancement timeout (0 disables)")
	rootCmd.Flags().IntVar(&maxDimensionFlag, "max-dimension", filehandler.DefaultMaxDimension, "Downscale images selected by path whose longest side exceeds this (0 disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.InitWithWriter(os.Stderr)
	metrics.SetOutput(os.Stderr)
	metrics.SetService("enhance-mcp")

	_, client := cli.InitGeminiClient()
	ctrl := workflow.New(chat.NewGeminiImageClient(client, modelFlag), workflow.WithTimeout(timeoutFlag))
	server := newMCPServer(&tools{ctrl: ctrl, maxDimension: maxDimensionFlag})

	logging.NewStartupLogger("enhance-mcp").
		Endpoint("mcp", "stdio").
		Config("model", modelFlag).
		Config("timeout", timeoutFlag.String()).
		InitDuration(time.Since(initStart)).
		Log()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
	ctrl.Wait(context.Background())
}

// newMCPServer registers the workflow tools on a new server.
func newMCPServer(t *tools) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "satellite-enhance", Version: version}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "select_image",
		Description: "Select the image to enhance, either a local file path or a base64 data:image/... URI. Clears any previous result.",
	}, t.selectImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "enhance_image",
		Description: "Enhance the selected image with the Gemini image model. Blocks until the result is ready and returns it as a JPEG image.",
	}, t.enhanceImage)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_state",
		Description: "Report whether an image is selected, whether an enhancement is running, and the last result or error.",
	}, t.getState)

	return server
}
