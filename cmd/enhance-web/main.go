package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
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

//go:embed all:frontend_dist
var frontendFS embed.FS

// CLI flags
var (
	portFlag         int
	modelFlag        string
	timeoutFlag      time.Duration
	maxDimensionFlag int
)

var rootCmd = &cobra.Command{
	Use:   "enhance-web",
	Short: "Web UI for satellite image super-resolution",
	Long: `Enhance Web starts a local web server with a side-by-side view of a
selected satellite image and its AI-enhanced version. Pick or drop an image,
press Enhance, and the result appears next to the original.

Examples:
  enhance-web
  enhance-web --port 9090
  enhance-web --model gemini-3-pro-image-preview --timeout 5m`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().IntVar(&portFlag, "port", 8080, "Port to listen on")
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.GetImageModelName(), "Gemini image model to use")
	rootCmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Minute, "Per-enhancement timeout (0 disables)")
	rootCmd.Flags().IntVar(&maxDimensionFlag, "max-dimension", filehandler.DefaultMaxDimension, "Downscale picked images whose longest side exceeds this (0 disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	initStart := time.Now()
	logging.Init()
	metrics.SetService("enhance-web")

	ctx, client := cli.InitGeminiClient()
	enhancer := chat.NewGeminiImageClient(client, modelFlag)
	ctrl := workflow.New(enhancer, workflow.WithTimeout(timeoutFlag))

	srv := newServer(ctrl, maxDimensionFlag, cli.PickImageFile)
	handler, err := srv.handler(frontendFS)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access embedded frontend")
	}

	addr := fmt.Sprintf(":%d", portFlag)
	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: /api/events is a long-lived stream.
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		srv.closeStreams()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
		if err := ctrl.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Enhancement still in flight at shutdown")
		}
	}()

	logging.NewStartupLogger("enhance-web").
		Endpoint("http", fmt.Sprintf("http://localhost:%d", portFlag)).
		Feature("gzip", true).
		Feature("filePicker", true).
		Config("model", modelFlag).
		Config("timeout", timeoutFlag.String()).
		Config("maxDimension", fmt.Sprint(maxDimensionFlag)).
		InitDuration(time.Since(initStart)).
		Log()
	fmt.Printf("\n  Satellite Enhance UI: http://localhost:%d\n\n", portFlag)

	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-done
}
