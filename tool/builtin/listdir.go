package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type listDirTool struct{}

// NewListDirTool constructs the directory listing tool.
func NewListDirTool() tool.Tool {
	return &listDirTool{}
}

func (t *listDirTool) Name() string { return "list_dir" }

func (t *listDirTool) Description() string {
	return "List files and directories in a given path. Shows file names, types, and sizes."
}

func (t *listDirTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_directory": map[string]any{
				"type":        "string",
				"description": "Directory path to list (supports ~ for home directory)",
			},
			"ignore_globs": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Optional glob patterns to ignore (e.g., ['*.pyc', 'node_modules'])",
			},
			"show_hidden": map[string]any{
				"type":        "boolean",
				"description": "Whether to show hidden files starting with . (default: false)",
			},
		},
		"required": []string{"target_directory"},
	}
}

func (t *listDirTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	rawDir := stringArg(args, "target_directory")
	if rawDir == "" {
		return core.ErrorResult(core.CodeInvalidParams, "target_directory is required").
			WithSuggestion("Provide a directory path to list."), nil
	}
	dir := resolvePath(rawDir)
	ignoreGlobs := stringSliceArg(args, "ignore_globs")
	showHidden := boolArg(args, "show_hidden")

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("Directory not found: %s", dir)).
				WithSuggestion("Check the directory path and try again."), nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %v", err)).
				WithSuggestion("Check directory permissions."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	if !info.IsDir() {
		return core.ErrorResult(core.CodeInvalidParams, fmt.Sprintf("Path is not a directory: %s", dir)).
			WithSuggestion("Provide a path to a directory, not a file."), nil
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %v", err)).
				WithSuggestion("Check directory permissions."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}

	entries := make([]map[string]any, 0, len(dirEntries))
	for _, entry := range dirEntries {
		name := entry.Name()
		if !showHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if matchesAny(name, ignoreGlobs) {
			continue
		}

		entryType := "file"
		if entry.IsDir() {
			entryType = "directory"
		}
		item := map[string]any{
			"name": name,
			"type": entryType,
			"path": filepath.Join(dir, name),
		}
		if !entry.IsDir() {
			if fi, err := entry.Info(); err == nil {
				item["size_bytes"] = fi.Size()
			}
		}
		entries = append(entries, item)
	}

	return core.SuccessResult(map[string]any{
		"directory": dir,
		"entries":   entries,
		"count":     len(entries),
	}), nil
}

func matchesAny(name string, patterns []string) bool {
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "**/")
		if ok, err := path.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
