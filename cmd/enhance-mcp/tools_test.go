package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/fpang/satellite-super-resolution/internal/metrics"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var enhancedBytes = []byte("enhanced")

func newTools(err error) *tools {
	ctrl := workflow.New(workflow.EnhancerFunc(func(ctx context.Context, payload string) (string, error) {
		if err != nil {
			return "", err
		}
		return base64.StdEncoding.EncodeToString(enhancedBytes), nil
	}))
	return &tools{ctrl: ctrl}
}

func TestSelectImage(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "scene.png")
	var buf bytes.Buffer
	png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	os.WriteFile(pngPath, buf.Bytes(), 0o644)

	tests := []struct {
		name    string
		in      selectImageInput
		wantErr bool
	}{
		{"data uri", selectImageInput{Image: "data:image/png;base64,AAAA"}, false},
		{"path", selectImageInput{Path: pngPath}, false},
		{"neither", selectImageInput{}, true},
		{"both", selectImageInput{Path: pngPath, Image: "data:image/png;base64,AAAA"}, true},
		{"bad uri", selectImageInput{Image: "not-a-uri"}, true},
		{"missing file", selectImageInput{Path: filepath.Join(dir, "nope.png")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTools(nil)
			_, out, err := tl.selectImage(context.Background(), nil, tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("selectImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (!out.HasInput || out.Generation != 1) {
				t.Errorf("summary = %+v", out)
			}
		})
	}
}

func TestEnhanceImage(t *testing.T) {
	tl := newTools(nil)
	tl.selectImage(context.Background(), nil, selectImageInput{Image: "data:image/png;base64,AAAA"})

	outPath := filepath.Join(t.TempDir(), "out.jpg")
	res, out, err := tl.enhanceImage(context.Background(), nil, enhanceImageInput{OutputPath: outPath})
	if err != nil {
		t.Fatalf("enhanceImage() error = %v", err)
	}
	if !out.HasOutput || out.Busy || out.OutputPath != outPath {
		t.Errorf("summary = %+v", out)
	}

	var img *mcp.ImageContent
	for _, c := range res.Content {
		if ic, ok := c.(*mcp.ImageContent); ok {
			img = ic
		}
	}
	if img == nil || img.MIMEType != "image/jpeg" || !bytes.Equal(img.Data, enhancedBytes) {
		t.Errorf("image content = %+v", img)
	}

	written, _ := os.ReadFile(outPath)
	if !bytes.Equal(written, enhancedBytes) {
		t.Errorf("written = %q", written)
	}
}

func TestEnhanceImage_Errors(t *testing.T) {
	t.Run("no image", func(t *testing.T) {
		_, _, err := newTools(nil).enhanceImage(context.Background(), nil, enhanceImageInput{})
		if err == nil || err.Error() != workflow.MissingInputMessage {
			t.Errorf("error = %v", err)
		}
	})

	t.Run("capability failure", func(t *testing.T) {
		tl := newTools(errors.New("safety filter blocked the image"))
		tl.selectImage(context.Background(), nil, selectImageInput{Image: "data:image/png;base64,AAAA"})
		_, _, err := tl.enhanceImage(context.Background(), nil, enhanceImageInput{})
		if err == nil || err.Error() != "safety filter blocked the image" {
			t.Errorf("error = %v", err)
		}
		if st := tl.ctrl.Snapshot(); st.Busy || st.Error == "" {
			t.Errorf("state = %+v", st)
		}
	})
}

func TestServerOverInMemoryTransport(t *testing.T) {
	ctx := context.Background()
	server := newMCPServer(newTools(nil))
	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	defer session.Close()

	list, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	names := map[string]bool{}
	for _, tool := range list.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"select_image", "enhance_image", "get_state"} {
		if !names[want] {
			t.Errorf("tool %q not registered", want)
		}
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "enhance_image", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if !res.IsError {
		t.Error("enhance_image without a selection should report a tool error")
	}
}
