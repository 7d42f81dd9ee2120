package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func testImage() *filehandler.ImageFile {
	return &filehandler.ImageFile{
		Path:     "/data/scene.png",
		MIMEType: "image/png",
		Size:     3,
		Data:     []byte{1, 2, 3},
	}
}

func TestRun_WritesOutput(t *testing.T) {
	enhanced := []byte("enhanced-jpeg-bytes")
	var gotPayload string
	ctrl := workflow.New(workflow.EnhancerFunc(func(ctx context.Context, payload string) (string, error) {
		gotPayload = payload
		return base64.StdEncoding.EncodeToString(enhanced), nil
	}))

	out := filepath.Join(t.TempDir(), "scene-enhanced.jpg")
	var buf bytes.Buffer
	if err := run(context.Background(), ctrl, testImage(), out, &buf); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if want := base64.StdEncoding.EncodeToString([]byte{1, 2, 3}); gotPayload != want {
		t.Errorf("payload = %q, want %q", gotPayload, want)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	if !bytes.Equal(data, enhanced) {
		t.Errorf("output = %q, want %q", data, enhanced)
	}
	if !strings.Contains(buf.String(), "Output: "+out+" (19 B)") {
		t.Errorf("progress output missing result line:\n%s", buf.String())
	}
}

func TestRun_Failure(t *testing.T) {
	ctrl := workflow.New(workflow.EnhancerFunc(func(ctx context.Context, payload string) (string, error) {
		return "", errors.New("model overloaded")
	}))

	out := filepath.Join(t.TempDir(), "out.jpg")
	err := run(context.Background(), ctrl, testImage(), out, io.Discard)
	if err == nil || err.Error() != "model overloaded" {
		t.Fatalf("run() error = %v, want model overloaded", err)
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output written despite failure")
	}
}

func TestRun_UndecodableOutput(t *testing.T) {
	ctrl := workflow.New(workflow.EnhancerFunc(func(ctx context.Context, payload string) (string, error) {
		return "%%%not-base64%%%", nil
	}))

	out := filepath.Join(t.TempDir(), "out.jpg")
	var buf bytes.Buffer
	err := run(context.Background(), ctrl, testImage(), out, &buf)
	if err == nil {
		t.Fatal("run() error = nil, want decode failure")
	}
	if strings.Contains(buf.String(), "Output:") {
		t.Errorf("reported a result despite the failure:\n%s", buf.String())
	}
	if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
		t.Error("output written despite decode failure")
	}
}

func TestReportProgress(t *testing.T) {
	updates := make(chan workflow.State, 4)
	updates <- workflow.State{InputImage: "x"}
	updates <- workflow.State{InputImage: "x", Busy: true}
	updates <- workflow.State{InputImage: "x", OutputImage: "y"}
	close(updates)

	var buf bytes.Buffer
	reportProgress(updates, &buf)
	if got := strings.Count(buf.String(), "Enhancing..."); got != 1 {
		t.Errorf("Enhancing lines = %d, want 1:\n%s", got, buf.String())
	}
}
