package builtin

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/model"
	"github.com/hupe1980/termagent/tool"
)

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type imageAnalyzeTool struct {
	model    model.Model
	maxBytes int
}

// NewImageAnalyzeTool constructs the vision analysis tool. The completion
// model is a hard constructor dependency; there is no fallback path.
func NewImageAnalyzeTool(m model.Model) tool.Tool {
	return &imageAnalyzeTool{model: m, maxBytes: config.MaxFileSizeBytes}
}

func (t *imageAnalyzeTool) Name() string { return "image_analyze" }

func (t *imageAnalyzeTool) Description() string {
	return "Analyze an image using vision capabilities. Can describe images, read text, identify objects."
}

func (t *imageAnalyzeTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"image_path": map[string]any{
				"type":        "string",
				"description": "Path to image file (absolute path or with ~ for home directory)",
			},
			"prompt": map[string]any{
				"type":        "string",
				"description": "Optional prompt/question about the image",
			},
		},
		"required": []string{"image_path"},
	}
}

func (t *imageAnalyzeTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	rawPath := stringArg(args, "image_path")
	if rawPath == "" {
		return core.ErrorResult(core.CodeInvalidParams, "image_path is required").
			WithSuggestion("Provide the path of the image to analyze."), nil
	}
	path := resolvePath(rawPath)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Image not found: %s", path)).
				WithSuggestion("Check the image path and try again."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	if info.Size() > int64(t.maxBytes) {
		return core.ErrorResult(core.CodeFileTooLarge,
			fmt.Sprintf("Image too large: %d bytes (max: %d)", info.Size(), t.maxBytes)).
			WithSuggestion("Resize or compress the image.").
			WithDetails(map[string]any{"file_size": info.Size(), "max_bytes": t.maxBytes}), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}

	mimeType, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]
	if !ok {
		mimeType = "image/jpeg"
	}

	prompt := stringArg(args, "prompt")
	if prompt == "" {
		prompt = "Describe this image in detail."
	}

	respCh, errCh := t.model.Generate(ctx, model.Request{
		Contents: []model.ChatMessage{{
			Role:    core.RoleUser,
			Content: prompt,
			Images: []model.ImagePart{{
				MIMEType: mimeType,
				Data:     base64.StdEncoding.EncodeToString(raw),
			}},
		}},
	})

	var analysis strings.Builder
	for resp := range respCh {
		if resp.Partial {
			analysis.WriteString(resp.Delta.Content)
			continue
		}
		analysis.WriteString(resp.Message.Content)
	}
	if err := <-errCh; err != nil {
		return core.ErrorResult(core.CodeNetworkError, fmt.Sprintf("Vision API error: %v", err)).
			WithSuggestion("Check API key and network connection."), nil
	}

	return core.SuccessResult(map[string]any{
		"analysis":         analysis.String(),
		"image_path":       path,
		"prompt":           prompt,
		"image_size_bytes": info.Size(),
	}), nil
}
