package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fpang/satellite-super-resolution/internal/dataurl"
	"github.com/fpang/satellite-super-resolution/internal/filehandler"
	"github.com/fpang/satellite-super-resolution/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

// tools binds the MCP tool handlers to one workflow controller.
type tools struct {
	ctrl         *workflow.Controller
	maxDimension int
}

// stateSummary is the structured tool output. Image payloads are left out;
// enhance_image returns the image itself as content.
type stateSummary struct {
	HasInput   bool   `json:"hasInput"`
	HasOutput  bool   `json:"hasOutput"`
	Busy       bool   `json:"busy"`
	Error      string `json:"error,omitempty"`
	Generation uint64 `json:"generation"`
	AttemptID  string `json:"attemptId,omitempty"`
	OutputPath string `json:"outputPath,omitempty"`
}

func summarize(st workflow.State) stateSummary {
	return stateSummary{
		HasInput:   st.HasInput(),
		HasOutput:  st.OutputImage != "",
		Busy:       st.Busy,
		Error:      st.Error,
		Generation: st.Generation,
		AttemptID:  st.AttemptID,
	}
}

type selectImageInput struct {
	Path  string `json:"path,omitempty" jsonschema:"local path of a JPEG, PNG, WebP or HEIC image"`
	Image string `json:"image,omitempty" jsonschema:"base64 data URI such as data:image/png;base64,..."`
}

func (t *tools) selectImage(ctx context.Context, req *mcp.CallToolRequest, in selectImageInput) (*mcp.CallToolResult, stateSummary, error) {
	var encoded string
	switch {
	case in.Path != "" && in.Image != "":
		return nil, stateSummary{}, errors.New("provide either path or image, not both")
	case in.Path != "":
		img, err := filehandler.LoadImage(in.Path, t.maxDimension)
		if err != nil {
			return nil, stateSummary{}, err
		}
		encoded = img.DataURL()
	case in.Image != "":
		if !dataurl.IsImage(in.Image) {
			return nil, stateSummary{}, errors.New("image must be a base64 data:image/... URI")
		}
		encoded = in.Image
	default:
		return nil, stateSummary{}, errors.New("path or image is required")
	}

	t.ctrl.SelectImage(encoded)
	log.Info().Str("path", in.Path).Int("length", len(encoded)).Msg("Image selected over MCP")
	return nil, summarize(t.ctrl.Snapshot()), nil
}

type enhanceImageInput struct {
	OutputPath string `json:"outputPath,omitempty" jsonschema:"optional file path to also write the enhanced JPEG to"`
}

func (t *tools) enhanceImage(ctx context.Context, req *mcp.CallToolRequest, in enhanceImageInput) (*mcp.CallToolResult, stateSummary, error) {
	err := t.ctrl.TriggerEnhancement(ctx)
	st := t.ctrl.Snapshot()
	if err != nil {
		switch {
		case errors.Is(err, workflow.ErrNoImage):
			return nil, stateSummary{}, errors.New(workflow.MissingInputMessage)
		case errors.Is(err, workflow.ErrBusy):
			return nil, stateSummary{}, err
		case st.Error != "":
			return nil, stateSummary{}, errors.New(st.Error)
		}
		return nil, stateSummary{}, err
	}
	if st.OutputImage == "" {
		return nil, stateSummary{}, errors.New("image changed while enhancing; result discarded")
	}

	out := summarize(st)
	mimeType, data, err := dataurl.Decode(st.OutputImage)
	if err != nil {
		return nil, stateSummary{}, fmt.Errorf("decoding enhanced image: %w", err)
	}

	text := fmt.Sprintf("Enhanced image ready (%d bytes).", len(data))
	if path := strings.TrimSpace(in.OutputPath); path != "" {
		if _, err := filehandler.SaveDataURL(path, st.OutputImage); err != nil {
			return nil, stateSummary{}, err
		}
		out.OutputPath = path
		text += " Saved to " + path + "."
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
			&mcp.ImageContent{Data: data, MIMEType: mimeType},
		},
	}, out, nil
}

func (t *tools) getState(ctx context.Context, req *mcp.CallToolRequest, in struct{}) (*mcp.CallToolResult, stateSummary, error) {
	return nil, summarize(t.ctrl.Snapshot()), nil
}
