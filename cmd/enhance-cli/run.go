package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fpang/satellite-super-resolution/internal/cli"
	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
)

// run selects img, performs one enhancement and writes the result to
// outputPath. Progress is printed to w as the controller state changes.
func run(ctx context.Context, ctrl *workflow.Controller, img *filehandler.ImageFile, outputPath string, w io.Writer) error {
	fmt.Fprintf(w, "Input:  %s (%s", img.Path, cli.FormatBytes(int(img.Size)))
	if img.Resized {
		fmt.Fprintf(w, ", downscaled to %s", cli.FormatBytes(len(img.Data)))
	}
	fmt.Fprintln(w, ")")
	if img.Metadata != nil {
		if meta := img.Metadata.FormatMetadataContext(); meta != "" {
			fmt.Fprintln(w, meta)
		}
	}

	ctrl.SelectImage(img.DataURL())

	updates, unsubscribe := ctrl.Subscribe()
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		reportProgress(updates, w)
	}()

	start := time.Now()
	err := ctrl.TriggerEnhancement(ctx)
	unsubscribe()
	<-progressDone

	st := ctrl.Snapshot()
	if err != nil {
		if st.Error != "" {
			return errors.New(st.Error)
		}
		return err
	}

	written, err := filehandler.SaveDataURL(outputPath, st.OutputImage)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Output: %s (%s) in %s\n", outputPath, cli.FormatBytes(written), cli.FormatDurationShort(time.Since(start)))
	return nil
}

// reportProgress prints one line per busy transition until updates closes.
func reportProgress(updates <-chan workflow.State, w io.Writer) {
	busy := false
	for st := range updates {
		if st.Busy && !busy {
			fmt.Fprintln(w, "Enhancing...")
		}
		busy = st.Busy
	}
}
