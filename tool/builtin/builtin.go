package builtin

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/termagent/tool"
)

// Default returns the standard tool set. Vision analysis is not included
// because it requires a completion model; construct it separately with
// NewImageAnalyzeTool and register it alongside.
func Default() []tool.Tool {
	return []tool.Tool{
		NewBashExecTool(),
		NewFileReadTool(),
		NewFileWriteTool(),
		NewListDirTool(),
		NewGlobFileSearchTool(),
		NewGrepTool(),
		NewReadLintsTool(),
		NewSearchReplaceTool(),
		NewWebSearchTool(),
		NewGitAgentTool(),
	}
}

// resolvePath expands a leading ~ to the user's home directory and makes
// the path absolute.
func resolvePath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func boolArg(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// intArg tolerates the float64 shape JSON decoding produces for numbers.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
