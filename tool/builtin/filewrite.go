package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type fileWriteTool struct {
	now func() time.Time
}

// NewFileWriteTool constructs the file writing tool. Existing files are
// backed up next to the original unless the model opts out.
func NewFileWriteTool() tool.Tool {
	return &fileWriteTool{now: time.Now}
}

func (t *fileWriteTool) Name() string { return "file_write" }

func (t *fileWriteTool) Description() string {
	return "Write or create a file anywhere on the local machine. Creates backup of existing files by default."
}

func (t *fileWriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file (absolute path or relative with ~ for home directory)",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
			"backup": map[string]any{
				"type":        "boolean",
				"description": "Whether to backup existing file (default: true)",
			},
		},
		"required": []string{"path", "content"},
	}
}

func (t *fileWriteTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	rawPath := stringArg(args, "path")
	if rawPath == "" {
		return core.ErrorResult(core.CodeInvalidParams, "path is required").
			WithSuggestion("Provide a file path to write."), nil
	}
	path := resolvePath(rawPath)
	content := stringArg(args, "content")

	backup := true
	if v, ok := args["backup"].(bool); ok {
		backup = v
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return writeError(err), nil
	}

	// Existing files keep their permission bits across backup and rewrite.
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	backupPath := ""
	if backup {
		if existing, err := os.ReadFile(path); err == nil {
			backupPath = fmt.Sprintf("%s.%s.bak", path, t.now().Format("20060102_150405"))
			if err := os.WriteFile(backupPath, existing, mode); err != nil {
				return writeError(err), nil
			}
		}
	}

	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return writeError(err), nil
	}

	result := map[string]any{
		"path":           path,
		"bytes_written":  len(content),
		"backup_created": backupPath != "",
	}
	if backupPath != "" {
		result["backup_path"] = backupPath
	}

	return core.SuccessResult(result), nil
}

func writeError(err error) core.ToolResult {
	if errors.Is(err, fs.ErrPermission) {
		return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %v", err)).
			WithSuggestion("Check directory permissions.")
	}
	return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err))
}
