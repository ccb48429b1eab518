package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hupe1980/termagent/config"
	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type fileReadTool struct {
	maxBytes int
}

// NewFileReadTool constructs the file reading tool with the default size cap.
func NewFileReadTool() tool.Tool {
	return &fileReadTool{maxBytes: config.MaxFileSizeBytes}
}

func (t *fileReadTool) Name() string { return "file_read" }

func (t *fileReadTool) Description() string {
	return "Read the contents of any file on the local machine."
}

func (t *fileReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file (absolute path or relative with ~ for home directory)",
			},
			"max_bytes": map[string]any{
				"type":        "integer",
				"description": "Maximum number of bytes to read (default: 1MB)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *fileReadTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	rawPath := stringArg(args, "path")
	if rawPath == "" {
		return core.ErrorResult(core.CodeInvalidParams, "path is required").
			WithSuggestion("Provide a file path to read."), nil
	}
	path := resolvePath(rawPath)
	maxRead := intArg(args, "max_bytes", t.maxBytes)

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("File not found: %s", path)).
				WithSuggestion("Check the file path and try again."), nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %s", path)).
				WithSuggestion("Check file permissions."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	if info.IsDir() {
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Path is not a file: %s", path)).
			WithSuggestion("Provide a path to a file, not a directory."), nil
	}
	if info.Size() > int64(maxRead) {
		return core.ErrorResult(core.CodeFileTooLarge,
			fmt.Sprintf("File too large: %d bytes (max: %d)", info.Size(), maxRead)).
			WithSuggestion("File exceeds size limit. Use max_bytes parameter to read partial content.").
			WithDetails(map[string]any{"file_size": info.Size(), "max_bytes": maxRead}), nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %s", path)).
				WithSuggestion("Check file permissions."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, int64(maxRead)))
	if err != nil {
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}

	content := string(raw)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	return core.SuccessResult(map[string]any{
		"content":    content,
		"path":       path,
		"size_bytes": info.Size(),
		"truncated":  info.Size() > int64(len(raw)),
	}), nil
}
