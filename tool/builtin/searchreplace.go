package builtin

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/hupe1980/termagent/core"
	"github.com/hupe1980/termagent/tool"
)

type searchReplaceTool struct {
	now func() time.Time
}

// NewSearchReplaceTool constructs the exact string replacement tool.
func NewSearchReplaceTool() tool.Tool {
	return &searchReplaceTool{now: time.Now}
}

func (t *searchReplaceTool) Name() string { return "search_replace" }

func (t *searchReplaceTool) Description() string {
	return "Perform exact string replacement in a file. The old_string must be unique unless replace_all is True. Creates backup automatically."
}

func (t *searchReplaceTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path": map[string]any{
				"type":        "string",
				"description": "Path to the file to modify",
			},
			"old_string": map[string]any{
				"type":        "string",
				"description": "The exact text to replace (must be unique in file unless replace_all=True)",
			},
			"new_string": map[string]any{
				"type":        "string",
				"description": "The replacement text",
			},
			"replace_all": map[string]any{
				"type":        "boolean",
				"description": "Replace all occurrences (default: false - requires unique old_string)",
			},
		},
		"required": []string{"file_path", "old_string", "new_string"},
	}
}

func (t *searchReplaceTool) Call(ctx context.Context, args map[string]any) (core.ToolResult, error) {
	rawPath := stringArg(args, "file_path")
	if rawPath == "" {
		return core.ErrorResult(core.CodeInvalidParams, "file_path is required").
			WithSuggestion("Provide the path of the file to modify."), nil
	}
	path := resolvePath(rawPath)
	oldString := stringArg(args, "old_string")
	newString := stringArg(args, "new_string")
	replaceAll := boolArg(args, "replace_all")

	if oldString == "" {
		return core.ErrorResult(core.CodeInvalidParams, "old_string is required").
			WithSuggestion("Provide the exact text to replace."), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return core.ErrorResult(core.CodeFileNotFound, fmt.Sprintf("File not found: %s", path)).
				WithSuggestion("Check the file path."), nil
		}
		if errors.Is(err, fs.ErrPermission) {
			return core.ErrorResult(core.CodePermissionDenied, fmt.Sprintf("Permission denied: %v", err)).
				WithSuggestion("Check file permissions."), nil
		}
		return core.ErrorResult(core.CodeUnknown, fmt.Sprintf("Unexpected error: %v", err)), nil
	}
	content := string(raw)

	occurrences := strings.Count(content, oldString)
	if occurrences == 0 {
		return core.ErrorResult(core.CodeInvalidParams,
			fmt.Sprintf("String not found in file: %s", preview(oldString, 50))).
			WithSuggestion("Check that the old_string exactly matches content in the file."), nil
	}
	if !replaceAll && occurrences > 1 {
		return core.ErrorResult(core.CodeInvalidParams,
			fmt.Sprintf("String found %d times. Must be unique or use replace_all=True", occurrences)).
			WithSuggestion("Provide more context to make old_string unique, or set replace_all=True."), nil
	}

	// Backup and rewrite keep the file's permission bits.
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	backupPath := fmt.Sprintf("%s.%s.bak", path, t.now().Format("20060102_150405"))
	if err := os.WriteFile(backupPath, raw, mode); err != nil {
		return writeError(err), nil
	}

	replacements := 1
	var newContent string
	if replaceAll {
		newContent = strings.ReplaceAll(content, oldString, newString)
		replacements = occurrences
	} else {
		newContent = strings.Replace(content, oldString, newString, 1)
	}

	if err := os.WriteFile(path, []byte(newContent), mode); err != nil {
		return writeError(err), nil
	}

	return core.SuccessResult(map[string]any{
		"file_path":          path,
		"replacements_made":  replacements,
		"backup_path":        backupPath,
		"old_string_preview": preview(oldString, 100),
		"new_string_preview": preview(newString, 100),
	}), nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
